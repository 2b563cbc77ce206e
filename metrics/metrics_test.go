package metrics

import (
	"testing"
	"time"

	"github.com/fusionswap/escrowd/escrow"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveIncrementsCounters(t *testing.T) {
	c := New()

	now := time.Now()
	c.observe(escrow.WalletCreated{})
	c.observe(escrow.EscrowCreated{Side: escrow.SideSrc, Amount: 100})
	c.observe(escrow.EscrowWithdrawn{Side: escrow.SideSrc})
	c.observe(escrow.EscrowCancelled{Side: escrow.SideDst})
	c.observe(escrow.FundsRescued{})
	c.observe(escrow.NewRescueCandidate(now, escrow.NewObjectID()))

	if got := testutil.ToFloat64(c.walletsCreated); got != 1 {
		t.Fatalf("walletsCreated = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.escrowsCreated.WithLabelValues("src")); got != 1 {
		t.Fatalf("escrowsCreated[src] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.escrowsWithdrawn.WithLabelValues("src")); got != 1 {
		t.Fatalf("escrowsWithdrawn[src] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.escrowsCancelled.WithLabelValues("dst")); got != 1 {
		t.Fatalf("escrowsCancelled[dst] = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.rescuesPerformed); got != 1 {
		t.Fatalf("rescuesPerformed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.rescueCandidates); got != 1 {
		t.Fatalf("rescueCandidates = %v, want 1", got)
	}
}
