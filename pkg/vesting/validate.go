package vesting

// validateCreate checks invariants I1-I6 against the raw parameters of a
// create_vesting call, returning the first violated invariant as a typed
// error matching spec §4.5's named failures.
func validateCreate(p CreateParams) error {
	// I1
	if p.StartTimestamp == 0 || p.StartTimestamp >= p.EndTimestamp {
		return newErr(ErrInvalidStart, "start=%d end=%d: require 0 < start < end", p.StartTimestamp, p.EndTimestamp)
	}

	// I2
	if p.InitialUnlock.Sign() < 0 || p.CliffAmount.Sign() < 0 || p.LinearVestAmount.Sign() < 0 {
		return newErr(ErrInvalidAmount, "initial_unlock, cliff_amount and linear_vest_amount must be non-negative")
	}

	// I3
	if p.CliffAmount.Sign() == 0 && p.LinearVestAmount.Sign() == 0 {
		return newErr(ErrInvalidAmount, "cliff_amount + linear_vest_amount must be > 0")
	}

	// I4
	if p.ReleaseIntervalSecs == 0 {
		return newErr(ErrInvalidInterval, "release_interval_secs must be > 0")
	}

	if p.CliffReleaseTimestamp == 0 {
		// I5
		if p.CliffAmount.Sign() != 0 {
			return newErr(ErrInvalidCliffAmount, "cliff_amount must be 0 when cliff_release_timestamp is 0")
		}
		if (p.EndTimestamp-p.StartTimestamp)%p.ReleaseIntervalSecs != 0 {
			return newErr(ErrInvalidIntervalLength, "(end-start) must be a multiple of release_interval_secs when there is no cliff")
		}
	} else {
		// I6
		if p.CliffAmount.Sign() <= 0 {
			return newErr(ErrInvalidCliffAmount, "cliff_amount must be > 0 when cliff_release_timestamp is set")
		}
		if p.CliffReleaseTimestamp < p.StartTimestamp || p.CliffReleaseTimestamp >= p.EndTimestamp {
			return newErr(ErrInvalidCliffRelease, "cliff_release_timestamp=%d must satisfy start <= cliff < end", p.CliffReleaseTimestamp)
		}
		if (p.EndTimestamp-p.CliffReleaseTimestamp)%p.ReleaseIntervalSecs != 0 {
			return newErr(ErrInvalidIntervalLength, "(end-cliff) must be a multiple of release_interval_secs")
		}
	}

	return nil
}
