// Package vesting implements the vesting manager core: schedule
// lifecycle, vested-amount computation, reserved-balance accounting,
// the claim/revoke state machine, and the administrator access model.
//
// The package is deliberately independent of how its state is persisted
// or how tokens actually move: both are capabilities injected by the
// caller (see Store and Token), not base classes the manager inherits
// from.
package vesting

import "math/big"

// Address is an opaque principal identifier. The manager never
// interprets its contents; it only compares addresses for equality and
// uses them as map/index keys.
type Address string

// ID is a vesting schedule identifier. Ids are dense and strictly
// monotonic starting at 0 (spec invariant I10).
type ID = uint64

// Vesting is the immutable-after-creation schedule record described in
// spec §3. Only ClaimedAmount and DeactivationTimestamp ever change
// after creation, and only through Claim and Revoke respectively.
type Vesting struct {
	Recipient              Address
	StartTimestamp         uint64
	EndTimestamp           uint64
	DeactivationTimestamp  uint64 // 0 means still active
	Timelock               uint64
	ReleaseIntervalSecs    uint64
	CliffReleaseTimestamp  uint64 // 0 means no cliff
	InitialUnlock          *big.Int
	CliffAmount            *big.Int
	LinearVestAmount       *big.Int
	ClaimedAmount          *big.Int
}

// Active reports whether the schedule has not been revoked.
func (v Vesting) Active() bool { return v.DeactivationTimestamp == 0 }

// TotalCommitted returns the total amount ever committed to this
// schedule at creation: InitialUnlock + CliffAmount + LinearVestAmount.
func (v Vesting) TotalCommitted() *big.Int {
	total := new(big.Int).Add(v.InitialUnlock, v.CliffAmount)
	total.Add(total, v.LinearVestAmount)
	return total
}

// Clone returns a deep copy so callers can mutate the returned value
// without affecting the manager's in-memory view (storage layers are
// expected to round-trip through their own copies regardless).
func (v Vesting) Clone() Vesting {
	clone := v
	clone.InitialUnlock = new(big.Int).Set(v.InitialUnlock)
	clone.CliffAmount = new(big.Int).Set(v.CliffAmount)
	clone.LinearVestAmount = new(big.Int).Set(v.LinearVestAmount)
	clone.ClaimedAmount = new(big.Int).Set(v.ClaimedAmount)
	return clone
}

// CreateParams bundles the arguments to CreateVesting, one schedule at a
// time; CreateVestingBatch fans this out across parallel slices.
type CreateParams struct {
	Recipient             Address
	StartTimestamp        uint64
	EndTimestamp          uint64
	Timelock              uint64
	InitialUnlock         *big.Int
	CliffReleaseTimestamp uint64
	CliffAmount           *big.Int
	ReleaseIntervalSecs   uint64
	LinearVestAmount      *big.Int
}

// BatchParams bundles nine equal-length sequences for
// CreateVestingBatch, mirroring spec §4.5's create_vesting_batch.
type BatchParams struct {
	Recipients             []Address
	StartTimestamps        []uint64
	EndTimestamps          []uint64
	Timelocks              []uint64
	InitialUnlocks         []*big.Int
	CliffReleaseTimestamps []uint64
	CliffAmounts           []*big.Int
	ReleaseIntervalsSecs   []uint64
	LinearVestAmounts      []*big.Int
}

// Len returns the common sequence length, or -1 if the nine slices are
// not all the same length (the caller fails LengthMismatch in that case).
func (b BatchParams) Len() int {
	n := len(b.Recipients)
	lens := []int{
		len(b.StartTimestamps), len(b.EndTimestamps), len(b.Timelocks),
		len(b.InitialUnlocks), len(b.CliffReleaseTimestamps), len(b.CliffAmounts),
		len(b.ReleaseIntervalsSecs), len(b.LinearVestAmounts),
	}
	for _, l := range lens {
		if l != n {
			return -1
		}
	}
	return n
}

func (b BatchParams) at(i int) CreateParams {
	return CreateParams{
		Recipient:             b.Recipients[i],
		StartTimestamp:        b.StartTimestamps[i],
		EndTimestamp:          b.EndTimestamps[i],
		Timelock:              b.Timelocks[i],
		InitialUnlock:         b.InitialUnlocks[i],
		CliffReleaseTimestamp: b.CliffReleaseTimestamps[i],
		CliffAmount:           b.CliffAmounts[i],
		ReleaseIntervalSecs:   b.ReleaseIntervalsSecs[i],
		LinearVestAmount:      b.LinearVestAmounts[i],
	}
}
