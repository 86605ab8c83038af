package vesting

import (
	"math/big"
	"sort"
)

// memStore is a minimal in-memory Store used only by this package's
// tests. It has no durability and no real transaction isolation: writes
// land in the shared maps immediately and are only "rolled back" by
// copying, mirroring just enough of a real transactional store to
// exercise Manager's commit/abort paths.
type memStore struct {
	initialized  bool
	tokenAddress string
	admins       map[Address]bool
	reserved     *big.Int
	schedules    map[ID]Vesting
	nextID       ID
	recipients   []Address
	recipientSet map[Address]bool
	byRecipient  map[Address][]ID
}

func newMemStore() *memStore {
	return &memStore{
		admins:       make(map[Address]bool),
		reserved:     big.NewInt(0),
		schedules:    make(map[ID]Vesting),
		recipientSet: make(map[Address]bool),
		byRecipient:  make(map[Address][]ID),
	}
}

// snapshot deep-copies the mutable state so WithWriteTx can discard
// changes made by a failing fn without touching the original.
func (s *memStore) snapshot() *memStore {
	c := &memStore{
		initialized:  s.initialized,
		tokenAddress: s.tokenAddress,
		admins:       make(map[Address]bool, len(s.admins)),
		reserved:     new(big.Int).Set(s.reserved),
		schedules:    make(map[ID]Vesting, len(s.schedules)),
		nextID:       s.nextID,
		recipients:   append([]Address(nil), s.recipients...),
		recipientSet: make(map[Address]bool, len(s.recipientSet)),
		byRecipient:  make(map[Address][]ID, len(s.byRecipient)),
	}
	for k, v := range s.admins {
		c.admins[k] = v
	}
	for k, v := range s.schedules {
		c.schedules[k] = v.Clone()
	}
	for k, v := range s.recipientSet {
		c.recipientSet[k] = v
	}
	for k, v := range s.byRecipient {
		c.byRecipient[k] = append([]ID(nil), v...)
	}
	return c
}

func (s *memStore) restore(from *memStore) {
	*s = *from
}

func (s *memStore) WithWriteTx(fn func(Tx) error) error {
	before := s.snapshot()
	tx := &memTx{s: s}
	if err := fn(tx); err != nil {
		s.restore(before)
		return err
	}
	return nil
}

func (s *memStore) Initialized() (bool, error)         { return s.initialized, nil }
func (s *memStore) TokenAddress() (string, error)       { return s.tokenAddress, nil }
func (s *memStore) IsAdmin(addr Address) (bool, error)  { return s.admins[addr], nil }
func (s *memStore) AdminCount() (uint32, error) {
	var n uint32
	for _, v := range s.admins {
		if v {
			n++
		}
	}
	return n, nil
}
func (s *memStore) Reserved() (*big.Int, error) { return new(big.Int).Set(s.reserved), nil }

func (s *memStore) GetSchedule(id ID) (Vesting, bool, error) {
	v, ok := s.schedules[id]
	if !ok {
		return Vesting{}, false, nil
	}
	return v.Clone(), true, nil
}

func (s *memStore) IsRecipient(addr Address) (bool, error) { return s.recipientSet[addr], nil }

func (s *memStore) Recipients() ([]Address, error) {
	return append([]Address(nil), s.recipients...), nil
}

func (s *memStore) RecipientsLen() (uint64, error) { return uint64(len(s.recipients)), nil }

func (s *memStore) RecipientsSliced(from, to uint64) ([]Address, error) {
	all, _ := s.Recipients()
	if to > uint64(len(all)) {
		return nil, newErr(ErrOutOfRange, "to=%d exceeds length %d", to, len(all))
	}
	return append([]Address(nil), all[from:to]...), nil
}

func (s *memStore) RecipientScheduleIDs(addr Address) ([]ID, error) {
	ids := append([]ID(nil), s.byRecipient[addr]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *memStore) RecipientScheduleIDsLen(addr Address) (uint64, error) {
	return uint64(len(s.byRecipient[addr])), nil
}

func (s *memStore) RecipientScheduleIDsSliced(addr Address, from, to uint64) ([]ID, error) {
	all, _ := s.RecipientScheduleIDs(addr)
	if to > uint64(len(all)) {
		return nil, newErr(ErrOutOfRange, "to=%d exceeds length %d", to, len(all))
	}
	return append([]ID(nil), all[from:to]...), nil
}

// memTx wraps the same *memStore the top-level Store reads from; since
// WithWriteTx snapshots before invoking fn and restores on error, it's
// safe for Tx to mutate the live maps directly.
type memTx struct {
	s *memStore
}

func (t *memTx) Initialized() (bool, error)        { return t.s.Initialized() }
func (t *memTx) TokenAddress() (string, error)      { return t.s.TokenAddress() }
func (t *memTx) IsAdmin(addr Address) (bool, error) { return t.s.IsAdmin(addr) }
func (t *memTx) AdminCount() (uint32, error)        { return t.s.AdminCount() }
func (t *memTx) Reserved() (*big.Int, error)        { return t.s.Reserved() }
func (t *memTx) GetSchedule(id ID) (Vesting, bool, error) { return t.s.GetSchedule(id) }
func (t *memTx) IsRecipient(addr Address) (bool, error)   { return t.s.IsRecipient(addr) }
func (t *memTx) Recipients() ([]Address, error)           { return t.s.Recipients() }
func (t *memTx) RecipientsLen() (uint64, error)           { return t.s.RecipientsLen() }
func (t *memTx) RecipientsSliced(from, to uint64) ([]Address, error) {
	return t.s.RecipientsSliced(from, to)
}
func (t *memTx) RecipientScheduleIDs(addr Address) ([]ID, error) {
	return t.s.RecipientScheduleIDs(addr)
}
func (t *memTx) RecipientScheduleIDsLen(addr Address) (uint64, error) {
	return t.s.RecipientScheduleIDsLen(addr)
}
func (t *memTx) RecipientScheduleIDsSliced(addr Address, from, to uint64) ([]ID, error) {
	return t.s.RecipientScheduleIDsSliced(addr, from, to)
}

func (t *memTx) Initialize(factoryCaller Address, tokenAddress string) error {
	t.s.initialized = true
	t.s.tokenAddress = tokenAddress
	t.s.admins[factoryCaller] = true
	return nil
}

func (t *memTx) SetAdmin(addr Address, enabled bool) { t.s.admins[addr] = enabled }
func (t *memTx) SetReserved(v *big.Int)              { t.s.reserved = new(big.Int).Set(v) }

func (t *memTx) PutSchedule(id ID, v Vesting) { t.s.schedules[id] = v.Clone() }

func (t *memTx) SetClaimedAmount(id ID, claimed *big.Int) {
	v := t.s.schedules[id]
	v.ClaimedAmount = new(big.Int).Set(claimed)
	t.s.schedules[id] = v
}

func (t *memTx) SetDeactivationTimestamp(id ID, ts uint64) {
	v := t.s.schedules[id]
	v.DeactivationTimestamp = ts
	t.s.schedules[id] = v
}

func (t *memTx) AppendRecipientSchedule(addr Address, id ID) {
	if !t.s.recipientSet[addr] {
		t.s.recipientSet[addr] = true
		t.s.recipients = append(t.s.recipients, addr)
	}
	t.s.byRecipient[addr] = append(t.s.byRecipient[addr], id)
}

func (t *memTx) AllocateID() ID {
	id := t.s.nextID
	t.s.nextID++
	return id
}
