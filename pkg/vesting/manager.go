package vesting

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/beans-labs/vesting-manager/internal/logger"
)

// Manager is the single-writer orchestrator described in spec §4.5. It
// authenticates callers, validates preconditions, mutates persistent
// state transactionally, moves tokens through the injected Token
// collaborator, and emits events — in that order, for every operation.
//
// Callers of Manager's exported methods are trusted to have already
// authenticated the caller address they pass in (spec §6's "require
// that the named principal authorized this invocation" is enforced by
// whatever sits in front of the manager, e.g. pkg/api's middleware).
// Manager itself only checks membership/ownership of an address it is
// told is authentic.
type Manager struct {
	store Store
	token Token
	clock Clock
	bus   EventBus
	log   *logger.Logger

	// mu serializes every mutating operation. The spec's host is
	// single-threaded and transactional by assumption (§5); this
	// program is neither, so a mutex stands in for that guarantee.
	mu sync.Mutex
}

// New builds a Manager over the given collaborators. bus may be nil, in
// which case events are discarded.
func New(store Store, token Token, clock Clock, bus EventBus, log *logger.Logger) *Manager {
	if bus == nil {
		bus = NopEventBus{}
	}
	return &Manager{store: store, token: token, clock: clock, bus: bus, log: log}
}

// Init seeds the admin set with exactly one admin (factoryCaller) and
// records the managed token's address. It may run exactly once; a
// second call fails AlreadyInitialized.
func (m *Manager) Init(ctx context.Context, factoryCaller Address, tokenAddress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	initialized, err := m.store.Initialized()
	if err != nil {
		return err
	}
	if initialized {
		return newErr(ErrAlreadyInitialized, "manager already initialized")
	}

	err = m.store.WithWriteTx(func(tx Tx) error {
		return tx.Initialize(factoryCaller, tokenAddress)
	})
	if err != nil {
		return err
	}

	m.log.WithFields(logger.Fields{
		"factory_caller": string(factoryCaller),
		"token_address":  tokenAddress,
	}).Info("vesting manager initialized")

	return nil
}

// SetAdmin implements spec §4.1's set_admin.
func (m *Manager) SetAdmin(ctx context.Context, caller, target Address, enable bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireAdmin(caller); err != nil {
		return err
	}

	isAdmin, err := m.store.IsAdmin(target)
	if err != nil {
		return err
	}
	if isAdmin == enable {
		return newErr(ErrAlreadyInState, "target admin state is already %v", enable)
	}

	if !enable {
		count, err := m.store.AdminCount()
		if err != nil {
			return err
		}
		if count == 1 {
			return newErr(ErrLastAdmin, "cannot remove the last admin")
		}
	}

	if err := m.store.WithWriteTx(func(tx Tx) error {
		tx.SetAdmin(target, enable)
		return nil
	}); err != nil {
		return err
	}

	m.bus.Publish(AdminAccessSetEvent{Admin: target, Enabled: enable})
	m.log.WithFields(logger.Fields{"admin": string(target), "enabled": enable}).Info("admin access changed")
	return nil
}

// IsAdmin reports whether addr currently holds admin capability.
func (m *Manager) IsAdmin(addr Address) (bool, error) { return m.store.IsAdmin(addr) }

// AdminsCount implements get_admins_count.
func (m *Manager) AdminsCount() (uint32, error) { return m.store.AdminCount() }

// CreateVesting implements spec §4.5's create_vesting.
func (m *Manager) CreateVesting(ctx context.Context, caller Address, p CreateParams) (ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireAdmin(caller); err != nil {
		return 0, err
	}

	id, err := m.createOne(ctx, caller, p)
	if err != nil {
		return 0, err
	}

	m.log.WithFields(logger.Fields{"id": id, "recipient": string(p.Recipient)}).Info("vesting created")
	return id, nil
}

// CreateVestingBatch implements spec §4.5's create_vesting_batch: a
// single admin authentication, fanned out across nine parallel slices.
func (m *Manager) CreateVestingBatch(ctx context.Context, caller Address, b BatchParams) ([]ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireAdmin(caller); err != nil {
		return nil, err
	}

	n := b.Len()
	if n < 0 {
		return nil, newErr(ErrLengthMismatch, "all nine parameter sequences must have equal length")
	}

	ids := make([]ID, 0, n)
	for i := 0; i < n; i++ {
		id, err := m.createOne(ctx, caller, b.at(i))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	m.log.WithFields(logger.Fields{"count": n}).Info("vesting batch created")
	return ids, nil
}

// createOne is the internal create path shared by CreateVesting and
// CreateVestingBatch: it validates, reserves, persists, and moves
// tokens in for a single schedule, without re-authenticating caller.
func (m *Manager) createOne(ctx context.Context, caller Address, p CreateParams) (ID, error) {
	if err := validateCreate(p); err != nil {
		return 0, err
	}

	var id ID
	v := Vesting{
		Recipient:             p.Recipient,
		StartTimestamp:        p.StartTimestamp,
		EndTimestamp:          p.EndTimestamp,
		DeactivationTimestamp: 0,
		Timelock:              p.Timelock,
		ReleaseIntervalSecs:   p.ReleaseIntervalSecs,
		CliffReleaseTimestamp: p.CliffReleaseTimestamp,
		InitialUnlock:         new(big.Int).Set(p.InitialUnlock),
		CliffAmount:           new(big.Int).Set(p.CliffAmount),
		LinearVestAmount:      new(big.Int).Set(p.LinearVestAmount),
		ClaimedAmount:         big.NewInt(0),
	}
	total := v.TotalCommitted()

	err := m.store.WithWriteTx(func(tx Tx) error {
		reserved, err := tx.Reserved()
		if err != nil {
			return err
		}
		id = tx.AllocateID()
		tx.PutSchedule(id, v)
		tx.AppendRecipientSchedule(p.Recipient, id)
		tx.SetReserved(new(big.Int).Add(reserved, total))

		if err := m.token.TransferFrom(ctx, caller, caller, SelfAddress, total); err != nil {
			return fmt.Errorf("token transfer_from failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	m.bus.Publish(VestingCreatedEvent{ID: id, Recipient: p.Recipient, Vesting: v})
	return id, nil
}

// SelfAddress is the manager's own custody address, the destination of
// create_vesting's transfer_from and the source of claim's transfer. It
// is a sentinel rather than a configured field because the manager
// never needs to compare it to anything but itself. It is exported so
// collaborators outside this package (e.g. the other-token lookup
// behind withdraw_other_token) can resolve the same custody identity.
const SelfAddress Address = "self"

// Claim implements spec §4.5's claim.
func (m *Manager) Claim(ctx context.Context, caller Address, id ID) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok, err := m.store.GetSchedule(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newErr(ErrUnknownSchedule, "schedule %d does not exist", id)
	}
	if caller != v.Recipient {
		return nil, newErr(ErrNotOwner, "caller is not the schedule's recipient")
	}

	now := m.clock.Now()
	if v.Timelock > now {
		return nil, newErr(ErrTimelockActive, "timelock active until %d (now=%d)", v.Timelock, now)
	}

	vested := Vested(v, now)
	claimable := new(big.Int).Sub(vested, v.ClaimedAmount)
	if claimable.Sign() <= 0 {
		return nil, newErr(ErrNothingToClaim, "nothing vested beyond the already-claimed amount")
	}

	newClaimed := new(big.Int).Add(v.ClaimedAmount, claimable)

	err = m.store.WithWriteTx(func(tx Tx) error {
		reserved, err := tx.Reserved()
		if err != nil {
			return err
		}
		tx.SetClaimedAmount(id, newClaimed)
		tx.SetReserved(new(big.Int).Sub(reserved, claimable))

		if err := m.token.Transfer(ctx, SelfAddress, caller, claimable); err != nil {
			return fmt.Errorf("token transfer failed: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.bus.Publish(ClaimedEvent{ID: id, Caller: caller, Amount: claimable})
	m.log.WithFields(logger.Fields{"id": id, "caller": string(caller), "amount": claimable.String()}).Info("vesting claimed")
	return claimable, nil
}

// RevokeVesting implements spec §4.5's revoke_vesting.
func (m *Manager) RevokeVesting(ctx context.Context, caller Address, id ID) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireAdmin(caller); err != nil {
		return nil, err
	}

	v, ok, err := m.store.GetSchedule(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newErr(ErrUnknownSchedule, "schedule %d does not exist", id)
	}
	if !v.Active() {
		return nil, newErr(ErrAlreadyRevoked, "schedule %d already revoked", id)
	}

	final := Vested(v, v.EndTimestamp)
	if final.Cmp(v.ClaimedAmount) == 0 {
		return nil, newErr(ErrFullyClaimed, "schedule %d is already fully claimed", id)
	}

	now := m.clock.Now()
	revoked := v
	revoked.DeactivationTimestamp = now
	vestedNow := Vested(revoked, now)
	forfeit := new(big.Int).Sub(final, vestedNow)

	err = m.store.WithWriteTx(func(tx Tx) error {
		reserved, err := tx.Reserved()
		if err != nil {
			return err
		}
		tx.SetDeactivationTimestamp(id, now)
		tx.SetReserved(new(big.Int).Sub(reserved, forfeit))
		return nil
	})
	if err != nil {
		return nil, err
	}

	m.bus.Publish(VestingRevokedEvent{ID: id, Recipient: v.Recipient, Forfeited: forfeit, Vesting: revoked})
	m.log.WithFields(logger.Fields{"id": id, "recipient": string(v.Recipient), "forfeited": forfeit.String()}).Info("vesting revoked")
	return forfeit, nil
}

// AmountToWithdrawByAdmin implements amount_to_withdraw_by_admin: the
// managed token's balance held by the manager, less what is reserved.
func (m *Manager) AmountToWithdrawByAdmin(ctx context.Context) (*big.Int, error) {
	balance, err := m.token.Balance(ctx, SelfAddress)
	if err != nil {
		return nil, err
	}
	reserved, err := m.store.Reserved()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Sub(balance, reserved), nil
}

// WithdrawAdmin implements spec §4.5's withdraw_admin.
func (m *Manager) WithdrawAdmin(ctx context.Context, caller Address, amount *big.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireAdmin(caller); err != nil {
		return err
	}

	available, err := m.AmountToWithdrawByAdmin(ctx)
	if err != nil {
		return err
	}
	if amount.Cmp(available) > 0 {
		return newErr(ErrInsufficientUnreserved, "requested %s exceeds withdrawable %s", amount, available)
	}

	if err := m.token.Transfer(ctx, SelfAddress, caller, amount); err != nil {
		return fmt.Errorf("token transfer failed: %w", err)
	}

	m.bus.Publish(AdminWithdrawnEvent{Caller: caller, Amount: amount})
	m.log.WithFields(logger.Fields{"caller": string(caller), "amount": amount.String()}).Info("admin withdrawal")
	return nil
}

// WithdrawOtherToken implements spec §4.5's withdraw_other_token.
// otherBalance is the manager's balance of other, as reported by
// whatever collaborator fronts that token (the manager has no Token
// handle for anything but its own managed token, so the caller supplies
// the balance and a transfer closure via otherTransfer).
func (m *Manager) WithdrawOtherToken(ctx context.Context, caller Address, other string, otherBalance *big.Int, otherTransfer func(ctx context.Context, to Address, amount *big.Int) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.requireAdmin(caller); err != nil {
		return err
	}

	managed, err := m.store.TokenAddress()
	if err != nil {
		return err
	}
	if other == managed {
		return newErr(ErrInvalidOtherToken, "cannot withdraw the managed token via withdraw_other_token")
	}

	if err := otherTransfer(ctx, caller, otherBalance); err != nil {
		return fmt.Errorf("token transfer failed: %w", err)
	}

	m.bus.Publish(AdminWithdrawnOtherEvent{Caller: caller, Amount: otherBalance})
	m.log.WithFields(logger.Fields{"caller": string(caller), "amount": otherBalance.String(), "token": other}).Info("admin withdrawal of other token")
	return nil
}

// CalculateVestedAmount implements the pure view calculate_vested_amount.
func (m *Manager) CalculateVestedAmount(id ID, at uint64) (*big.Int, error) {
	v, ok, err := m.store.GetSchedule(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, newErr(ErrUnknownSchedule, "schedule %d does not exist", id)
	}
	return Vested(v, at), nil
}

// GetVestingInfo implements get_vesting_info.
func (m *Manager) GetVestingInfo(id ID) (Vesting, error) {
	v, ok, err := m.store.GetSchedule(id)
	if err != nil {
		return Vesting{}, err
	}
	if !ok {
		return Vesting{}, newErr(ErrUnknownSchedule, "schedule %d does not exist", id)
	}
	return v, nil
}

func (m *Manager) GetAllRecipients() ([]Address, error) { return m.store.Recipients() }

func (m *Manager) GetAllRecipientsLen() (uint64, error) { return m.store.RecipientsLen() }

func (m *Manager) GetAllRecipientsSliced(from, to uint64) ([]Address, error) {
	if from > to {
		return nil, newErr(ErrOutOfRange, "from=%d must be <= to=%d", from, to)
	}
	return m.store.RecipientsSliced(from, to)
}

func (m *Manager) IsRecipient(addr Address) (bool, error) { return m.store.IsRecipient(addr) }

func (m *Manager) GetAllRecipientVestings(r Address) ([]ID, error) {
	return m.store.RecipientScheduleIDs(r)
}

func (m *Manager) GetAllRecipientVestingsLen(r Address) (uint64, error) {
	return m.store.RecipientScheduleIDsLen(r)
}

func (m *Manager) GetAllRecipientVestingSliced(from, to uint64, r Address) ([]ID, error) {
	if from > to {
		return nil, newErr(ErrOutOfRange, "from=%d must be <= to=%d", from, to)
	}
	return m.store.RecipientScheduleIDsSliced(r, from, to)
}

func (m *Manager) GetTokenAddress() (string, error) { return m.store.TokenAddress() }

func (m *Manager) GetTokensReservedForVesting() (*big.Int, error) { return m.store.Reserved() }

// Snapshot is a read-only consistency view used by operational tooling
// (the /v1/debug/snapshot HTTP route) to inspect the
// manager's aggregate state without threading individual queries
// through a caller. It is pure plumbing over Reader methods already
// exposed elsewhere on Manager: taking it does not itself constitute a
// state transition.
type Snapshot struct {
	AdminCount    uint32
	RecipientCount uint64
	Reserved      *big.Int
	TokenAddress  string
	VestedAtNow   map[ID]*big.Int
}

// Snapshot builds a Snapshot as of the current clock time.
func (m *Manager) Snapshot() (Snapshot, error) {
	adminCount, err := m.store.AdminCount()
	if err != nil {
		return Snapshot{}, err
	}
	recipientCount, err := m.store.RecipientsLen()
	if err != nil {
		return Snapshot{}, err
	}
	reserved, err := m.store.Reserved()
	if err != nil {
		return Snapshot{}, err
	}
	tokenAddress, err := m.store.TokenAddress()
	if err != nil {
		return Snapshot{}, err
	}

	recipients, err := m.store.Recipients()
	if err != nil {
		return Snapshot{}, err
	}
	now := m.clock.Now()
	vestedAtNow := make(map[ID]*big.Int)
	for _, r := range recipients {
		ids, err := m.store.RecipientScheduleIDs(r)
		if err != nil {
			return Snapshot{}, err
		}
		for _, id := range ids {
			v, ok, err := m.store.GetSchedule(id)
			if err != nil {
				return Snapshot{}, err
			}
			if ok {
				vestedAtNow[id] = Vested(v, now)
			}
		}
	}

	return Snapshot{
		AdminCount:     adminCount,
		RecipientCount: recipientCount,
		Reserved:       reserved,
		TokenAddress:   tokenAddress,
		VestedAtNow:    vestedAtNow,
	}, nil
}

// requireAdmin authenticates the admin-gated precondition shared by
// most mutating operations.
func (m *Manager) requireAdmin(caller Address) error {
	isAdmin, err := m.store.IsAdmin(caller)
	if err != nil {
		return err
	}
	if !isAdmin {
		return newErr(ErrNotAdmin, "caller %s is not an admin", caller)
	}
	return nil
}
