package escrow

import (
	"sync"
	"time"
)

// memStore is a minimal in-memory Store used only by this package's own
// tests; the real daemon uses the bbolt-backed store in this module's
// store package.
type memStore struct {
	mu      sync.Mutex
	wallets map[ObjectID]*Wallet
	escrows map[ObjectID]*Escrow
	cfg     *AdminConfig
}

func newMemStore() *memStore {
	return &memStore{
		wallets: make(map[ObjectID]*Wallet),
		escrows: make(map[ObjectID]*Escrow),
	}
}

func (s *memStore) GetWallet(id ObjectID) (*Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (s *memStore) PutWallet(w *Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *w
	s.wallets[w.ID] = &cp
	return nil
}

func (s *memStore) GetEscrow(id ObjectID) (*Escrow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.escrows[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *memStore) PutEscrow(e *Escrow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.escrows[e.ID] = &cp
	return nil
}

func (s *memStore) DeleteWallet(id ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.wallets, id)
	return nil
}

func (s *memStore) DeleteEscrow(id ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.escrows, id)
	return nil
}

func (s *memStore) GetAdminConfig() (*AdminConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg == nil {
		return nil, nil
	}
	cp := *s.cfg
	return &cp, nil
}

func (s *memStore) PutAdminConfig(cfg *AdminConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cfg
	s.cfg = &cp
	return nil
}

// fakeClock is a manually-advanced Clock for deterministic timelock tests.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingSink captures every event published during a test.
type recordingSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *recordingSink) Publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) last() Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) == 0 {
		return nil
	}
	return s.events[len(s.events)-1]
}

// testTimelocks returns a Timelocks value satisfying every monotonicity
// and cross-chain ordering invariant, scaled in small steps so tests can
// advance a fakeClock deterministically between stages.
func testTimelocks() Timelocks {
	return Timelocks{
		DstWithdrawal:         1 * time.Minute,
		DstPublicWithdrawal:   2 * time.Minute,
		DstCancellation:       3 * time.Minute,
		SrcWithdrawal:         4 * time.Minute,
		SrcPublicWithdrawal:   5 * time.Minute,
		SrcCancellation:       6 * time.Minute,
		SrcPublicCancellation: 7 * time.Minute,
	}
}

var testSecret = []byte("correct-horse-battery-staple-321")

func testHashlock() Hash32 {
	return Keccak256(testSecret)
}
