// Package storage persists vesting manager state to SQLite. It is
// grounded on pkg/state's InitializeDB pattern (schema creation via
// plain database/sql statements) but actually imports the sqlite
// driver it declares in go.mod and drives real transactions through
// it, implementing vesting.Store/vesting.Tx instead of hand-rolling an
// ad hoc accounts table.
package storage

import (
	"database/sql"
	"fmt"
	"math/big"

	_ "github.com/mattn/go-sqlite3"

	"github.com/beans-labs/vesting-manager/pkg/vesting"
)

const schema = `
CREATE TABLE IF NOT EXISTS manager_state (
	id INTEGER PRIMARY KEY CHECK (id = 0),
	initialized INTEGER NOT NULL DEFAULT 0,
	token_address TEXT NOT NULL DEFAULT '',
	reserved TEXT NOT NULL DEFAULT '0',
	next_id INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS admins (
	address TEXT PRIMARY KEY,
	enabled INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schedules (
	id INTEGER PRIMARY KEY,
	recipient TEXT NOT NULL,
	start_timestamp INTEGER NOT NULL,
	end_timestamp INTEGER NOT NULL,
	deactivation_timestamp INTEGER NOT NULL DEFAULT 0,
	timelock INTEGER NOT NULL DEFAULT 0,
	release_interval_secs INTEGER NOT NULL,
	cliff_release_timestamp INTEGER NOT NULL DEFAULT 0,
	initial_unlock TEXT NOT NULL,
	cliff_amount TEXT NOT NULL,
	linear_vest_amount TEXT NOT NULL,
	claimed_amount TEXT NOT NULL DEFAULT '0'
);

CREATE INDEX IF NOT EXISTS idx_schedules_recipient ON schedules(recipient);
`

// DB wraps a SQLite connection and implements vesting.Store.
type DB struct {
	conn *sql.DB
}

// Open creates (or attaches to) the manager's SQLite database at path
// and ensures its schema exists.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	conn.SetMaxOpenConns(1) // SQLite allows one writer; avoid pool contention on writes

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	if _, err := conn.Exec(`INSERT OR IGNORE INTO manager_state (id) VALUES (0)`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("seed manager_state row: %w", err)
	}

	return &DB{conn: conn}, nil
}

func (d *DB) Close() error { return d.conn.Close() }

func (d *DB) WithWriteTx(fn func(vesting.Tx) error) error {
	sqlTx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	tx := &sqliteTx{tx: sqlTx}
	fnErr := fn(tx)
	if fnErr == nil {
		fnErr = tx.err
	}
	if fnErr != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", fnErr, rbErr)
		}
		return fnErr
	}
	return sqlTx.Commit()
}

func (d *DB) Initialized() (bool, error) { return initializedQ(d.conn) }
func (d *DB) TokenAddress() (string, error) { return tokenAddressQ(d.conn) }
func (d *DB) IsAdmin(addr vesting.Address) (bool, error) { return isAdminQ(d.conn, addr) }
func (d *DB) AdminCount() (uint32, error) { return adminCountQ(d.conn) }
func (d *DB) Reserved() (*big.Int, error) { return reservedQ(d.conn) }
func (d *DB) GetSchedule(id vesting.ID) (vesting.Vesting, bool, error) { return getScheduleQ(d.conn, id) }
func (d *DB) IsRecipient(addr vesting.Address) (bool, error) { return isRecipientQ(d.conn, addr) }
func (d *DB) Recipients() ([]vesting.Address, error) { return recipientsQ(d.conn) }
func (d *DB) RecipientsLen() (uint64, error) { return recipientsLenQ(d.conn) }
func (d *DB) RecipientsSliced(from, to uint64) ([]vesting.Address, error) {
	return recipientsSlicedQ(d.conn, from, to)
}
func (d *DB) RecipientScheduleIDs(addr vesting.Address) ([]vesting.ID, error) {
	return recipientScheduleIDsQ(d.conn, addr)
}
func (d *DB) RecipientScheduleIDsLen(addr vesting.Address) (uint64, error) {
	return recipientScheduleIDsLenQ(d.conn, addr)
}
func (d *DB) RecipientScheduleIDsSliced(addr vesting.Address, from, to uint64) ([]vesting.ID, error) {
	return recipientScheduleIDsSlicedQ(d.conn, addr, from, to)
}

// sqliteTx implements vesting.Tx over a single *sql.Tx. Reads inside a
// write transaction use querier, an interface *sql.Tx satisfies, so the
// same query helpers serve both DB and sqliteTx.
type sqliteTx struct {
	tx  *sql.Tx
	err error // first error from any mutator; checked by WithWriteTx after fn returns
}

func (t *sqliteTx) Initialized() (bool, error)                { return initializedQ(t.tx) }
func (t *sqliteTx) TokenAddress() (string, error)              { return tokenAddressQ(t.tx) }
func (t *sqliteTx) IsAdmin(addr vesting.Address) (bool, error) { return isAdminQ(t.tx, addr) }
func (t *sqliteTx) AdminCount() (uint32, error)                { return adminCountQ(t.tx) }
func (t *sqliteTx) Reserved() (*big.Int, error)                { return reservedQ(t.tx) }
func (t *sqliteTx) GetSchedule(id vesting.ID) (vesting.Vesting, bool, error) {
	return getScheduleQ(t.tx, id)
}
func (t *sqliteTx) IsRecipient(addr vesting.Address) (bool, error) { return isRecipientQ(t.tx, addr) }
func (t *sqliteTx) Recipients() ([]vesting.Address, error)         { return recipientsQ(t.tx) }
func (t *sqliteTx) RecipientsLen() (uint64, error)                 { return recipientsLenQ(t.tx) }
func (t *sqliteTx) RecipientsSliced(from, to uint64) ([]vesting.Address, error) {
	return recipientsSlicedQ(t.tx, from, to)
}
func (t *sqliteTx) RecipientScheduleIDs(addr vesting.Address) ([]vesting.ID, error) {
	return recipientScheduleIDsQ(t.tx, addr)
}
func (t *sqliteTx) RecipientScheduleIDsLen(addr vesting.Address) (uint64, error) {
	return recipientScheduleIDsLenQ(t.tx, addr)
}
func (t *sqliteTx) RecipientScheduleIDsSliced(addr vesting.Address, from, to uint64) ([]vesting.ID, error) {
	return recipientScheduleIDsSlicedQ(t.tx, addr, from, to)
}

func (t *sqliteTx) Initialize(factoryCaller vesting.Address, tokenAddress string) error {
	if _, err := t.tx.Exec(`UPDATE manager_state SET initialized = 1, token_address = ? WHERE id = 0`, tokenAddress); err != nil {
		return fmt.Errorf("set initialized: %w", err)
	}
	if _, err := t.tx.Exec(`INSERT INTO admins (address, enabled) VALUES (?, 1)`, string(factoryCaller)); err != nil {
		return fmt.Errorf("insert factory admin: %w", err)
	}
	return nil
}

func (t *sqliteTx) SetAdmin(addr vesting.Address, enabled bool) {
	enabledInt := 0
	if enabled {
		enabledInt = 1
	}
	t.mustExec(`INSERT INTO admins (address, enabled) VALUES (?, ?)
		ON CONFLICT(address) DO UPDATE SET enabled = excluded.enabled`, string(addr), enabledInt)
}

func (t *sqliteTx) SetReserved(v *big.Int) {
	t.mustExec(`UPDATE manager_state SET reserved = ? WHERE id = 0`, v.String())
}

func (t *sqliteTx) PutSchedule(id vesting.ID, v vesting.Vesting) {
	t.mustExec(`INSERT INTO schedules (
			id, recipient, start_timestamp, end_timestamp, deactivation_timestamp,
			timelock, release_interval_secs, cliff_release_timestamp,
			initial_unlock, cliff_amount, linear_vest_amount, claimed_amount
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(v.Recipient), v.StartTimestamp, v.EndTimestamp, v.DeactivationTimestamp,
		v.Timelock, v.ReleaseIntervalSecs, v.CliffReleaseTimestamp,
		v.InitialUnlock.String(), v.CliffAmount.String(), v.LinearVestAmount.String(), v.ClaimedAmount.String())
}

func (t *sqliteTx) SetClaimedAmount(id vesting.ID, claimed *big.Int) {
	t.mustExec(`UPDATE schedules SET claimed_amount = ? WHERE id = ?`, claimed.String(), id)
}

func (t *sqliteTx) SetDeactivationTimestamp(id vesting.ID, ts uint64) {
	t.mustExec(`UPDATE schedules SET deactivation_timestamp = ? WHERE id = ?`, ts, id)
}

func (t *sqliteTx) AppendRecipientSchedule(addr vesting.Address, id vesting.ID) {
	// No separate join table: schedules.recipient already carries the
	// mapping, and recipient queries filter/group on it directly. This
	// method exists to satisfy vesting.Tx's write-time hook in case a
	// future denormalization wants it, and currently is a no-op beyond
	// what PutSchedule already recorded.
}

func (t *sqliteTx) AllocateID() vesting.ID {
	var next int64
	row := t.tx.QueryRow(`SELECT next_id FROM manager_state WHERE id = 0`)
	if err := row.Scan(&next); err != nil {
		t.setErr(fmt.Errorf("read next_id: %w", err))
		return 0
	}
	t.mustExec(`UPDATE manager_state SET next_id = ? WHERE id = 0`, next+1)
	return vesting.ID(next)
}

// mustExec records the first failure it sees rather than panicking:
// vesting.Tx's mutators have no error return, so a failed statement is
// surfaced by tainting the transaction, which WithWriteTx checks after
// fn returns and rolls back on.
func (t *sqliteTx) mustExec(query string, args ...interface{}) {
	if _, err := t.tx.Exec(query, args...); err != nil {
		t.setErr(fmt.Errorf("sqlite exec failed: %w (query: %s)", err, query))
	}
}

func (t *sqliteTx) setErr(err error) {
	if t.err == nil {
		t.err = err
	}
}
