package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"ledgersetup/ledger"
)

// Client is a ledger.Client backed by a SQL database. Every Execute call
// runs in its own transaction.
type Client struct {
	db      *sql.DB
	backend backend
}

func NewClient(db *sql.DB, driver string) (*Client, error) {
	b, ok := backends[driver]
	if !ok {
		return nil, errors.Errorf("unsupported driver %q", driver)
	}
	return &Client{db: db, backend: b}, nil
}

func (c *Client) Dialect() ledger.Dialect { return c.backend.dialect }

func (c *Client) Execute(ctx context.Context, body func(ctx context.Context, txn ledger.Txn) error) (err error) {
	tx, err := c.db.BeginTx(ctx, c.backend.txOpts)
	if err != nil {
		return classify(errors.Wrap(err, "begin transaction"))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = classify(errors.Wrap(tx.Commit(), "commit"))
		}
	}()

	return body(ctx, &txn{tx: tx})
}

// Lock takes a session-level advisory lock on a dedicated connection and
// holds it until unlock is called. Backends without advisory locks get a
// no-op.
func (c *Client) Lock(ctx context.Context, key string) (func() error, error) {
	if c.backend.lockStmt == "" {
		return func() error { return nil }, nil
	}

	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reserve lock connection")
	}
	if _, err := conn.ExecContext(ctx, c.backend.lockStmt, key); err != nil {
		conn.Close()
		return nil, errors.Wrapf(err, "advisory lock %q", key)
	}

	return func() error {
		defer conn.Close()
		_, err := conn.ExecContext(context.Background(), c.backend.unlockStmt, key)
		return errors.Wrapf(err, "advisory unlock %q", key)
	}, nil
}

type txn struct {
	tx *sql.Tx
}

func (t *txn) ExecuteStatement(ctx context.Context, statement string, params ...any) (ledger.ResultSet, error) {
	if !returnsRows(statement) {
		if _, err := t.tx.ExecContext(ctx, statement, params...); err != nil {
			return nil, classify(errors.Wrap(err, "exec statement"))
		}
		return &ledger.SliceResultSet{}, nil
	}

	rows, err := t.tx.QueryContext(ctx, statement, params...)
	if err != nil {
		return nil, classify(errors.Wrap(err, "query statement"))
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, errors.Wrap(err, "read columns")
	}
	return &rowsResultSet{rows: rows, cols: cols}, nil
}

func returnsRows(statement string) bool {
	s := strings.ToUpper(strings.TrimSpace(statement))
	return strings.HasPrefix(s, "SELECT") || strings.HasPrefix(s, "WITH")
}

// classify tags driver errors that mean "this index is already there" with
// ledger.ErrIndexExists, keeping the driver error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "42P07" { // duplicate_table
		return fmt.Errorf("%w: %w", ledger.ErrIndexExists, err)
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrError &&
		strings.Contains(liteErr.Error(), "already exists") && strings.Contains(liteErr.Error(), "index") {
		return fmt.Errorf("%w: %w", ledger.ErrIndexExists, err)
	}
	return err
}

// rowsResultSet decodes rows lazily. Text columns holding JSON arrays or
// objects are decoded so catalog rows carry structured index lists.
type rowsResultSet struct {
	rows *sql.Rows
	cols []string
	cur  ledger.Record
	err  error
}

func (r *rowsResultSet) Next() bool {
	if r.err != nil || !r.rows.Next() {
		r.cur = nil
		return false
	}
	vals := make([]any, len(r.cols))
	ptrs := make([]any, len(r.cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := r.rows.Scan(ptrs...); err != nil {
		r.err = errors.Wrap(err, "scan row")
		r.cur = nil
		return false
	}

	rec := make(ledger.Record, len(r.cols))
	for i, col := range r.cols {
		rec[col] = decodeValue(vals[i])
	}
	r.cur = rec
	return true
}

func (r *rowsResultSet) Record() ledger.Record { return r.cur }

func (r *rowsResultSet) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

func (r *rowsResultSet) Close() error { return r.rows.Close() }

func decodeValue(v any) any {
	var text string
	switch vv := v.(type) {
	case []byte:
		text = string(vv)
	case string:
		text = vv
	default:
		return v
	}
	if len(text) > 0 && (text[0] == '[' || text[0] == '{') {
		var out any
		if err := json.Unmarshal([]byte(text), &out); err == nil {
			return out
		}
	}
	return text
}
