package db

import (
	"database/sql"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/lib/pq"

	"ledgersetup/ledger"
)

// Postgres emulates the ledger catalog over information_schema.tables and
// pg_indexes: one row per table with "name" and an "indexes" JSON array of
// {"expr": indexdef}.
var Postgres = ledger.Dialect{
	Name: DriverPostgres,
	CatalogQuery: `
SELECT t.table_name AS name,
       COALESCE(json_agg(json_build_object('expr', i.indexdef) ORDER BY i.indexname)
                FILTER (WHERE i.indexdef IS NOT NULL), '[]'::json) AS indexes
  FROM information_schema.tables t
  LEFT JOIN pg_indexes i
    ON i.schemaname = t.table_schema AND i.tablename = t.table_name
 WHERE t.table_schema = current_schema()
   AND t.table_type = 'BASE TABLE'
   AND t.table_name = $1
 GROUP BY t.table_name`,
	CreateIndex: createIndexIfNotExists,
}

// SQLite emulates the ledger catalog over sqlite_master.
var SQLite = ledger.Dialect{
	Name: DriverSQLite,
	CatalogQuery: `
SELECT m.name AS name,
       (SELECT json_group_array(json_object('expr', i.sql))
          FROM sqlite_master i
         WHERE i.type = 'index' AND i.tbl_name = m.name AND i.sql IS NOT NULL) AS indexes
  FROM sqlite_master m
 WHERE m.type = 'table' AND m.name = ?`,
	CreateIndex: createIndexIfNotExists,
}

// maxIdentLen is the postgres identifier limit (NAMEDATALEN - 1).
const maxIdentLen = 63

// IndexName is the deterministic name given to setup-created indexes, so
// that concurrent runs collide on the name instead of piling up copies.
// Index names are schema-wide, so the name ends in a hash of the exact
// table and field: a_b(c) and a(b_c), or Person(GovId) and person(govid),
// never share a name.
func IndexName(table, field string) string {
	sum := fmt.Sprintf("_%016x", xxhash.Sum64String(table+"\x00"+field))
	prefix := "idx_" + table + "_" + field
	if len(prefix)+len(sum) > maxIdentLen {
		prefix = prefix[:maxIdentLen-len(sum)]
	}
	return prefix + sum
}

// Both SQL backends accept IF NOT EXISTS, which makes the create itself
// idempotent. The name is unique per (table, field), so a skipped create
// means the index is there.
func createIndexIfNotExists(table, field string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
		pq.QuoteIdentifier(IndexName(table, field)),
		pq.QuoteIdentifier(table),
		pq.QuoteIdentifier(field))
}

type backend struct {
	dialect ledger.Dialect
	txOpts  *sql.TxOptions
	// session-level advisory lock; empty when the backend has none
	lockStmt   string
	unlockStmt string
}

var backends = map[string]backend{
	DriverPostgres: {
		dialect:    Postgres,
		txOpts:     &sql.TxOptions{Isolation: sql.LevelSerializable},
		lockStmt:   `SELECT pg_advisory_lock(hashtext($1))`,
		unlockStmt: `SELECT pg_advisory_unlock(hashtext($1))`,
	},
	// sqlite serializes writers on its own
	DriverSQLite: {
		dialect: SQLite,
	},
}
