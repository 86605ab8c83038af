// Package token provides Token collaborator implementations for the
// vesting manager. MemoryLedger is an in-process balance sheet used by
// tests, the demo CLI and vestingd's standalone mode in place of a real
// token service; it is the only Token implementation in this
// repository. The manager depends only on the vesting.Token interface,
// matching cosmos-sdk's pattern of keeping the BankKeeper an interface
// the module never constructs itself.
package token

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/beans-labs/vesting-manager/pkg/vesting"
)

// MemoryLedger is a minimal fungible-token ledger: balances and
// allowances keyed by address, guarded by a mutex. It implements
// vesting.Token.
type MemoryLedger struct {
	mu         sync.Mutex
	balances   map[vesting.Address]*big.Int
	allowances map[vesting.Address]map[vesting.Address]*big.Int
}

// NewMemoryLedger returns an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		balances:   make(map[vesting.Address]*big.Int),
		allowances: make(map[vesting.Address]map[vesting.Address]*big.Int),
	}
}

// Mint credits addr with amount, out of nothing. Used by tests and the
// demo CLI to fund an admin before it creates vesting schedules; a real
// token would have no equivalent exposed to the manager.
func (l *MemoryLedger) Mint(addr vesting.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(addr, amount)
}

// Approve lets spender move up to amount out of owner's balance via
// TransferFrom, mirroring ERC-20/cosmos-sdk allowance semantics.
func (l *MemoryLedger) Approve(owner, spender vesting.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[vesting.Address]*big.Int)
	}
	l.allowances[owner][spender] = new(big.Int).Set(amount)
}

func (l *MemoryLedger) Balance(ctx context.Context, addr vesting.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balanceOf(addr)), nil
}

func (l *MemoryLedger) Transfer(ctx context.Context, from, to vesting.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, to, amount)
}

func (l *MemoryLedger) TransferFrom(ctx context.Context, spender, owner, to vesting.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	// The manager always calls TransferFrom with spender == owner when
	// pulling funds directly from the admin that authorized the create,
	// so an allowance is only consulted when the two differ.
	if spender != owner {
		remaining := l.allowanceOf(owner, spender)
		if remaining.Cmp(amount) < 0 {
			return fmt.Errorf("insufficient allowance: spender=%s owner=%s has %s, needs %s", spender, owner, remaining, amount)
		}
		l.allowances[owner][spender] = new(big.Int).Sub(remaining, amount)
	}
	return l.move(owner, to, amount)
}

func (l *MemoryLedger) move(from, to vesting.Address, amount *big.Int) error {
	balance := l.balanceOf(from)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("insufficient balance: %s has %s, needs %s", from, balance, amount)
	}
	l.balances[from] = new(big.Int).Sub(balance, amount)
	l.credit(to, amount)
	return nil
}

func (l *MemoryLedger) credit(addr vesting.Address, amount *big.Int) {
	l.balances[addr] = new(big.Int).Add(l.balanceOf(addr), amount)
}

func (l *MemoryLedger) balanceOf(addr vesting.Address) *big.Int {
	b, ok := l.balances[addr]
	if !ok {
		return big.NewInt(0)
	}
	return b
}

func (l *MemoryLedger) allowanceOf(owner, spender vesting.Address) *big.Int {
	m, ok := l.allowances[owner]
	if !ok {
		return big.NewInt(0)
	}
	a, ok := m[spender]
	if !ok {
		return big.NewInt(0)
	}
	return a
}

// Registry holds one MemoryLedger per token address, standing in for
// the set of unrelated tokens a real deployment might accidentally (or
// as an airdrop) receive at the manager's custody address. It backs
// withdraw_other_token in vestingd and the pkg/api tests, where pkg/vesting.Manager
// is only ever handed the single managed Token.
type Registry struct {
	mu      sync.Mutex
	ledgers map[string]*MemoryLedger
}

// NewRegistry returns an empty token registry.
func NewRegistry() *Registry {
	return &Registry{ledgers: make(map[string]*MemoryLedger)}
}

// Ledger returns the MemoryLedger for addr, creating it on first use.
func (r *Registry) Ledger(addr string) *MemoryLedger {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.ledgers[addr]
	if !ok {
		l = NewMemoryLedger()
		r.ledgers[addr] = l
	}
	return l
}
