package vesting

import (
	"context"
	"math/big"
)

// Token is the managed fungible-token collaborator described in spec
// §6. It is a capability injected into the manager, not a base class:
// production wires it to a real token service, tests wire it to an
// in-memory ledger (pkg/token).
type Token interface {
	// Transfer moves amount already owned by the manager (from) to to.
	Transfer(ctx context.Context, from, to Address, amount *big.Int) error

	// TransferFrom moves amount that owner has pre-approved spender to
	// move, crediting to. Used by create_vesting to pull funds from the
	// admin into the manager's custody.
	TransferFrom(ctx context.Context, spender, owner, to Address, amount *big.Int) error

	// Balance returns addr's current balance of this token.
	Balance(ctx context.Context, addr Address) (*big.Int, error)
}

// Clock is the host's monotonic wall-clock oracle (spec §6), abstracted
// so tests can pin time instead of racing the real clock.
type Clock interface {
	Now() uint64
}
