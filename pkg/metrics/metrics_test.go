package metrics

import (
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/beans-labs/vesting-manager/pkg/vesting"
)

func TestEventSinkIncrementsCounters(t *testing.T) {
	e := NewExporter(0)
	reserved := big.NewInt(500)
	sink := e.EventSink(func() (*big.Int, error) { return reserved, nil })

	sink.Publish(vesting.VestingCreatedEvent{ID: 1, Recipient: "r"})
	sink.Publish(vesting.ClaimedEvent{ID: 1, Caller: "r", Amount: big.NewInt(10)})
	sink.Publish(vesting.VestingRevokedEvent{ID: 1, Recipient: "r", Forfeited: big.NewInt(5)})
	sink.Publish(vesting.AdminWithdrawnEvent{Caller: "a", Amount: big.NewInt(1)})
	sink.Publish(vesting.AdminWithdrawnOtherEvent{Caller: "a", Amount: big.NewInt(1)})

	if got := testutil.ToFloat64(e.SchedulesCreated); got != 1 {
		t.Fatalf("SchedulesCreated = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.SchedulesClaimed); got != 1 {
		t.Fatalf("SchedulesClaimed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.SchedulesRevoked); got != 1 {
		t.Fatalf("SchedulesRevoked = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.AdminWithdrawals); got != 2 {
		t.Fatalf("AdminWithdrawals = %v, want 2", got)
	}
	if got := testutil.ToFloat64(e.Reserved); got != 500 {
		t.Fatalf("Reserved = %v, want 500", got)
	}
}

func TestIncClaimErrorLabelsByKind(t *testing.T) {
	e := NewExporter(0)
	e.IncClaimError(string(vesting.ErrNotAdmin))
	e.IncClaimError(string(vesting.ErrNotAdmin))
	e.IncClaimError(string(vesting.ErrUnknownSchedule))

	if got := testutil.ToFloat64(e.ClaimErrors.WithLabelValues(string(vesting.ErrNotAdmin))); got != 2 {
		t.Fatalf("NotAdmin errors = %v, want 2", got)
	}
	if got := testutil.ToFloat64(e.ClaimErrors.WithLabelValues(string(vesting.ErrUnknownSchedule))); got != 1 {
		t.Fatalf("UnknownSchedule errors = %v, want 1", got)
	}
}
