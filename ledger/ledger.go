package ledger

import (
	"context"
	"errors"
)

// ErrIndexExists is returned (wrapped) by clients when a create statement
// fails because an equivalent index is already present.
var ErrIndexExists = errors.New("index already exists")

// Record is one structured row of a result set.
type Record map[string]any

// ResultSet is a lazy cursor over statement results, used like sql.Rows.
type ResultSet interface {
	Next() bool
	Record() Record
	Err() error
	Close() error
}

// Txn is the statement surface available inside Client.Execute.
type Txn interface {
	ExecuteStatement(ctx context.Context, statement string, params ...any) (ResultSet, error)
}

// Client runs bodies inside a ledger transaction. Commit, rollback and
// retries are the client's business.
type Client interface {
	Execute(ctx context.Context, body func(ctx context.Context, txn Txn) error) error
	Dialect() Dialect
}

// Locker is implemented by clients that can serialize concurrent setup
// runs against the same ledger.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func() error, err error)
}

// Dialect holds the statement texts a backend understands.
type Dialect struct {
	Name string
	// CatalogQuery selects the catalog row for one table, with a single
	// bound parameter for the table name. Rows carry "name" and "indexes",
	// the latter a sequence of records with an "expr" field.
	CatalogQuery string
	// CreateIndex renders the DDL for an index on table(field). Inputs are
	// validated identifiers.
	CreateIndex func(table, field string) string
}

// PartiQL is the native dialect of the ledger.
var PartiQL = Dialect{
	Name:         "partiql",
	CatalogQuery: "SELECT * FROM information_schema.user_tables WHERE name = ?",
	CreateIndex: func(table, field string) string {
		return "CREATE INDEX ON " + table + "(" + field + ")"
	},
}
