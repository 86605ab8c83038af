package storage

import (
	"database/sql"
	"fmt"
	"math/big"

	"github.com/beans-labs/vesting-manager/pkg/vesting"
)

// querier is the subset of *sql.DB and *sql.Tx every read query needs,
// so the same helper serves reads made outside and inside a write
// transaction.
type querier interface {
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

func initializedQ(q querier) (bool, error) {
	var v int
	err := q.QueryRow(`SELECT initialized FROM manager_state WHERE id = 0`).Scan(&v)
	if err != nil {
		return false, fmt.Errorf("read initialized: %w", err)
	}
	return v != 0, nil
}

func tokenAddressQ(q querier) (string, error) {
	var addr string
	err := q.QueryRow(`SELECT token_address FROM manager_state WHERE id = 0`).Scan(&addr)
	if err != nil {
		return "", fmt.Errorf("read token_address: %w", err)
	}
	return addr, nil
}

func isAdminQ(q querier, addr vesting.Address) (bool, error) {
	var enabled int
	err := q.QueryRow(`SELECT enabled FROM admins WHERE address = ?`, string(addr)).Scan(&enabled)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read admin %s: %w", addr, err)
	}
	return enabled != 0, nil
}

func adminCountQ(q querier) (uint32, error) {
	var n uint32
	err := q.QueryRow(`SELECT COUNT(*) FROM admins WHERE enabled = 1`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count admins: %w", err)
	}
	return n, nil
}

func reservedQ(q querier) (*big.Int, error) {
	var s string
	err := q.QueryRow(`SELECT reserved FROM manager_state WHERE id = 0`).Scan(&s)
	if err != nil {
		return nil, fmt.Errorf("read reserved: %w", err)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("reserved column holds non-integer value %q", s)
	}
	return v, nil
}

func getScheduleQ(q querier, id vesting.ID) (vesting.Vesting, bool, error) {
	row := q.QueryRow(`SELECT recipient, start_timestamp, end_timestamp, deactivation_timestamp,
			timelock, release_interval_secs, cliff_release_timestamp,
			initial_unlock, cliff_amount, linear_vest_amount, claimed_amount
		FROM schedules WHERE id = ?`, id)

	var (
		recipient                                        string
		initialUnlock, cliffAmount, linearAmount, claimed string
		v                                                 vesting.Vesting
	)
	err := row.Scan(&recipient, &v.StartTimestamp, &v.EndTimestamp, &v.DeactivationTimestamp,
		&v.Timelock, &v.ReleaseIntervalSecs, &v.CliffReleaseTimestamp,
		&initialUnlock, &cliffAmount, &linearAmount, &claimed)
	if err == sql.ErrNoRows {
		return vesting.Vesting{}, false, nil
	}
	if err != nil {
		return vesting.Vesting{}, false, fmt.Errorf("read schedule %d: %w", id, err)
	}

	v.Recipient = vesting.Address(recipient)
	v.InitialUnlock = mustBigInt(initialUnlock)
	v.CliffAmount = mustBigInt(cliffAmount)
	v.LinearVestAmount = mustBigInt(linearAmount)
	v.ClaimedAmount = mustBigInt(claimed)
	return v, true, nil
}

func isRecipientQ(q querier, addr vesting.Address) (bool, error) {
	var n int
	err := q.QueryRow(`SELECT COUNT(*) FROM schedules WHERE recipient = ?`, string(addr)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check recipient %s: %w", addr, err)
	}
	return n > 0, nil
}

func recipientsQ(q querier) ([]vesting.Address, error) {
	rows, err := q.Query(`SELECT recipient FROM schedules GROUP BY recipient ORDER BY MIN(id)`)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var out []vesting.Address
	for rows.Next() {
		var addr string
		if err := rows.Scan(&addr); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, vesting.Address(addr))
	}
	return out, rows.Err()
}

func recipientsLenQ(q querier) (uint64, error) {
	var n uint64
	err := q.QueryRow(`SELECT COUNT(DISTINCT recipient) FROM schedules`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count recipients: %w", err)
	}
	return n, nil
}

func recipientsSlicedQ(q querier, from, to uint64) ([]vesting.Address, error) {
	all, err := recipientsQ(q)
	if err != nil {
		return nil, err
	}
	if to > uint64(len(all)) {
		return nil, vesting.NewError(vesting.ErrOutOfRange, "to=%d exceeds length %d", to, len(all))
	}
	return append([]vesting.Address(nil), all[from:to]...), nil
}

func recipientScheduleIDsQ(q querier, addr vesting.Address) ([]vesting.ID, error) {
	rows, err := q.Query(`SELECT id FROM schedules WHERE recipient = ? ORDER BY id`, string(addr))
	if err != nil {
		return nil, fmt.Errorf("list schedules for %s: %w", addr, err)
	}
	defer rows.Close()

	var out []vesting.ID
	for rows.Next() {
		var id vesting.ID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan schedule id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func recipientScheduleIDsLenQ(q querier, addr vesting.Address) (uint64, error) {
	var n uint64
	err := q.QueryRow(`SELECT COUNT(*) FROM schedules WHERE recipient = ?`, string(addr)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count schedules for %s: %w", addr, err)
	}
	return n, nil
}

func recipientScheduleIDsSlicedQ(q querier, addr vesting.Address, from, to uint64) ([]vesting.ID, error) {
	all, err := recipientScheduleIDsQ(q, addr)
	if err != nil {
		return nil, err
	}
	if to > uint64(len(all)) {
		return nil, vesting.NewError(vesting.ErrOutOfRange, "to=%d exceeds length %d", to, len(all))
	}
	return append([]vesting.ID(nil), all[from:to]...), nil
}

func mustBigInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}
