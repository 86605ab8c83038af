package vesting

import "math/big"

// Vested computes the total amount vested (initial unlock + cliff +
// linear portion) for v as of reference time t, respecting revocation.
// It is pure, total, and deterministic: no I/O, no locking, no mutation
// of v. See spec §4.3 for the derivation of each step; the comments
// below keep the step numbers so the two can be read side by side.
//
// Step 5 deliberately consults the unclamped t for the initial-unlock
// guard rather than the clamped t' used everywhere else — see spec §9's
// "Initial-unlock guard uses the unclamped reference time" note. This is
// preserved rather than "fixed" because a revoked schedule with
// DeactivationTimestamp < StartTimestamp can only be ruled out by
// forbidding revocation before start, which this package does not impose (spec
// leaves the choice to implementers and asks that the documented
// behavior be mirrored, not silently changed).
func Vested(v Vesting, t uint64) *big.Int {
	tPrime := t
	if v.DeactivationTimestamp != 0 && tPrime > v.DeactivationTimestamp {
		tPrime = v.DeactivationTimestamp // step 1
	}

	amount := big.NewInt(0) // step 2

	if tPrime >= v.EndTimestamp {
		tPrime = v.EndTimestamp // step 3
	}

	if tPrime >= v.CliffReleaseTimestamp {
		amount.Add(amount, v.CliffAmount) // step 4
	}

	if v.InitialUnlock.Sign() > 0 && t >= v.StartTimestamp {
		amount.Add(amount, v.InitialUnlock) // step 5, unclamped t
	}

	s := v.StartTimestamp
	if v.CliffReleaseTimestamp != 0 {
		s = v.CliffReleaseTimestamp // step 6
	}

	if tPrime > s { // step 7
		elapsed := tPrime - s
		elapsedTruncated := (elapsed / v.ReleaseIntervalSecs) * v.ReleaseIntervalSecs
		duration := v.EndTimestamp - s

		linear := new(big.Int).Mul(v.LinearVestAmount, new(big.Int).SetUint64(elapsedTruncated))
		linear.Quo(linear, new(big.Int).SetUint64(duration)) // multiply before divide
		amount.Add(amount, linear)
	}

	return amount
}
