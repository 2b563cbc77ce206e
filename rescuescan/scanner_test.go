package rescuescan

import (
	"testing"
	"time"

	"github.com/fusionswap/escrowd/escrow"
)

type fakeLister struct {
	ids []escrow.ObjectID
}

func (f fakeLister) ListActiveObjectIDs() ([]escrow.ObjectID, error) {
	return f.ids, nil
}

type fakeInspector struct {
	cfg        escrow.AdminConfig
	deployedAt map[escrow.ObjectID]time.Time
}

func (f fakeInspector) AdminConfigSnapshot() (escrow.AdminConfig, error) {
	return f.cfg, nil
}

func (f fakeInspector) DeployedAt(id escrow.ObjectID) (time.Time, bool, error) {
	t, ok := f.deployedAt[id]
	return t, ok, nil
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

type recordingSink struct {
	events []escrow.Event
}

func (s *recordingSink) Publish(ev escrow.Event) {
	s.events = append(s.events, ev)
}

func TestScanOnceEmitsOnlyPastDelayAndOnlyOnce(t *testing.T) {
	overdue := escrow.NewObjectID()
	fresh := escrow.NewObjectID()

	base := time.Unix(1_700_000_000, 0).UTC()
	clock := &fakeClock{now: base.Add(48 * time.Hour)}

	lister := fakeLister{ids: []escrow.ObjectID{overdue, fresh}}
	inspector := fakeInspector{
		cfg: escrow.AdminConfig{RescueDelay: 24 * time.Hour},
		deployedAt: map[escrow.ObjectID]time.Time{
			overdue: base,
			fresh:   base.Add(47 * time.Hour),
		},
	}
	sink := &recordingSink{}

	s := New(lister, inspector, sink, clock, time.Minute)

	s.scanOnce()
	if len(sink.events) != 1 {
		t.Fatalf("expected exactly one candidate, got %d", len(sink.events))
	}
	got, ok := sink.events[0].(escrow.RescueCandidate)
	if !ok {
		t.Fatalf("expected RescueCandidate, got %T", sink.events[0])
	}
	if got.Object != overdue {
		t.Fatalf("expected candidate %s, got %s", overdue, got.Object)
	}

	// A second scan at the same time must not re-notify.
	s.scanOnce()
	if len(sink.events) != 1 {
		t.Fatalf("expected no duplicate notification, got %d total events", len(sink.events))
	}
}
