package ledger

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
)

var (
	catalogStmt = regexp.MustCompile(`(?i)^\s*SELECT\s+\*\s+FROM\s+information_schema\.user_tables\s+WHERE\s+name\s*=\s*\?\s*$`)
	createStmt  = regexp.MustCompile(`(?i)^\s*CREATE\s+INDEX\s+ON\s+(\w+)\s*\(\s*(\w+)\s*\)\s*$`)
	tableStmt   = regexp.MustCompile(`(?i)^\s*CREATE\s+TABLE\s+(\w+)\s*$`)
)

// Memory is an in-process ledger that understands the PartiQL statements
// used for index setup. Writes made inside Execute become visible to other
// transactions only when the body returns nil and the commit succeeds; a
// failed commit applies none of them.
type Memory struct {
	mu         sync.Mutex
	tables     map[string][]string
	statements []string
}

// NewMemory returns a ledger holding the given empty tables.
func NewMemory(tables ...string) *Memory {
	m := &Memory{tables: make(map[string][]string)}
	for _, t := range tables {
		m.tables[t] = nil
	}
	return m
}

func (m *Memory) Dialect() Dialect { return PartiQL }

func (m *Memory) Execute(ctx context.Context, body func(ctx context.Context, txn Txn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := &memoryTxn{m: m, tables: make(map[string][]string)}
	if err := body(ctx, txn); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// A concurrent transaction may have committed the same index; nothing is
	// applied unless every staged write still fits.
	for t, exprs := range txn.tables {
		for _, e := range exprs {
			if contains(m.tables[t], e) {
				return fmt.Errorf("%w: %s on %s", ErrIndexExists, e, t)
			}
		}
	}
	for t, exprs := range txn.tables {
		m.tables[t] = append(m.tables[t], exprs...)
	}
	return nil
}

// Indexes returns the committed index expressions of a table.
func (m *Memory) Indexes(table string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.tables[table]...)
}

// Tables returns the committed table names in sorted order.
func (m *Memory) Tables() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.tables))
	for t := range m.tables {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Statements returns every statement text executed so far, in order.
func (m *Memory) Statements() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.statements...)
}

type memoryTxn struct {
	m *Memory
	// pending writes, keyed by table
	tables map[string][]string
}

func (t *memoryTxn) ExecuteStatement(ctx context.Context, statement string, params ...any) (ResultSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.statements = append(t.m.statements, statement)

	switch {
	case catalogStmt.MatchString(statement):
		if len(params) != 1 {
			return nil, fmt.Errorf("catalog query takes 1 parameter, got %d", len(params))
		}
		name, ok := params[0].(string)
		if !ok {
			return nil, fmt.Errorf("table name parameter must be a string, got %T", params[0])
		}
		committed, exists := t.m.tables[name]
		pending, staged := t.tables[name]
		if !exists && !staged {
			return &SliceResultSet{}, nil
		}
		indexes := make([]any, 0, len(committed)+len(pending))
		for _, e := range append(append([]string(nil), committed...), pending...) {
			indexes = append(indexes, Record{"expr": e, "status": "ONLINE"})
		}
		return &SliceResultSet{Records: []Record{{"name": name, "indexes": indexes}}}, nil

	case createStmt.MatchString(statement):
		g := createStmt.FindStringSubmatch(statement)
		table, expr := g[1], "["+g[2]+"]"
		if _, ok := t.m.tables[table]; !ok {
			if _, staged := t.tables[table]; !staged {
				return nil, fmt.Errorf("table %s does not exist", table)
			}
		}
		if contains(t.m.tables[table], expr) || contains(t.tables[table], expr) {
			return nil, fmt.Errorf("%w: %s on %s", ErrIndexExists, expr, table)
		}
		t.tables[table] = append(t.tables[table], expr)
		return &SliceResultSet{}, nil

	case tableStmt.MatchString(statement):
		table := tableStmt.FindStringSubmatch(statement)[1]
		if _, ok := t.m.tables[table]; ok {
			return nil, fmt.Errorf("table %s already exists", table)
		}
		if _, ok := t.tables[table]; !ok {
			t.tables[table] = []string{}
		}
		return &SliceResultSet{}, nil
	}
	return nil, fmt.Errorf("unsupported statement: %s", strings.TrimSpace(statement))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// SliceResultSet serves records from memory.
type SliceResultSet struct {
	Records []Record
	pos     int
	cur     Record
}

func (s *SliceResultSet) Next() bool {
	if s.pos >= len(s.Records) {
		s.cur = nil
		return false
	}
	s.cur = s.Records[s.pos]
	s.pos++
	return true
}

func (s *SliceResultSet) Record() Record { return s.cur }
func (s *SliceResultSet) Err() error     { return nil }
func (s *SliceResultSet) Close() error   { return nil }
