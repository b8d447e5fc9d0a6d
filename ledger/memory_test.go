package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalogRows(t *testing.T, m *Memory, table string) []Record {
	t.Helper()
	var rows []Record
	err := m.Execute(context.Background(), func(ctx context.Context, txn Txn) error {
		rs, err := txn.ExecuteStatement(ctx, PartiQL.CatalogQuery, table)
		if err != nil {
			return err
		}
		defer rs.Close()
		for rs.Next() {
			rows = append(rows, rs.Record())
		}
		return rs.Err()
	})
	require.NoError(t, err)
	return rows
}

func TestMemory_CatalogUnknownTable(t *testing.T) {
	m := NewMemory("Person")
	assert.Empty(t, catalogRows(t, m, "Vehicle"))

	rows := catalogRows(t, m, "Person")
	require.Len(t, rows, 1)
	assert.Equal(t, "Person", rows[0]["name"])
	assert.Empty(t, rows[0]["indexes"])
}

func TestMemory_CreateIndexCommits(t *testing.T) {
	m := NewMemory("Person")
	err := m.Execute(context.Background(), func(ctx context.Context, txn Txn) error {
		_, err := txn.ExecuteStatement(ctx, PartiQL.CreateIndex("Person", "GovId"))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"[GovId]"}, m.Indexes("Person"))

	rows := catalogRows(t, m, "Person")
	require.Len(t, rows, 1)
	indexes := rows[0]["indexes"].([]any)
	require.Len(t, indexes, 1)
	assert.Equal(t, "[GovId]", indexes[0].(Record)["expr"])
}

func TestMemory_FailedBodyDiscardsWrites(t *testing.T) {
	m := NewMemory("Person")
	boom := errors.New("boom")
	err := m.Execute(context.Background(), func(ctx context.Context, txn Txn) error {
		if _, err := txn.ExecuteStatement(ctx, PartiQL.CreateIndex("Person", "GovId")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, m.Indexes("Person"))
}

func TestMemory_DuplicateIndex(t *testing.T) {
	m := NewMemory("Person")
	create := func(ctx context.Context, txn Txn) error {
		_, err := txn.ExecuteStatement(ctx, PartiQL.CreateIndex("Person", "GovId"))
		return err
	}
	require.NoError(t, m.Execute(context.Background(), create))
	err := m.Execute(context.Background(), create)
	assert.ErrorIs(t, err, ErrIndexExists)
}

func TestMemory_CreateIndexMissingTable(t *testing.T) {
	m := NewMemory()
	err := m.Execute(context.Background(), func(ctx context.Context, txn Txn) error {
		_, err := txn.ExecuteStatement(ctx, PartiQL.CreateIndex("Person", "GovId"))
		return err
	})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrIndexExists)
}

func TestMemory_CreateTable(t *testing.T) {
	m := NewMemory()
	err := m.Execute(context.Background(), func(ctx context.Context, txn Txn) error {
		_, err := txn.ExecuteStatement(ctx, "CREATE TABLE Vehicle")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Vehicle"}, m.Tables())
}

func TestMemory_UnsupportedStatement(t *testing.T) {
	m := NewMemory()
	err := m.Execute(context.Background(), func(ctx context.Context, txn Txn) error {
		_, err := txn.ExecuteStatement(ctx, "DROP TABLE Vehicle")
		return err
	})
	assert.Error(t, err)
	assert.Equal(t, []string{"DROP TABLE Vehicle"}, m.Statements())
}

func TestMemory_CanceledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Execute(ctx, func(ctx context.Context, txn Txn) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemory_ConflictingCommitAppliesNothing(t *testing.T) {
	m := NewMemory("Person", "Vehicle", "DriversLicense")
	ctx := context.Background()
	create := func(table, field string) func(ctx context.Context, txn Txn) error {
		return func(ctx context.Context, txn Txn) error {
			_, err := txn.ExecuteStatement(ctx, PartiQL.CreateIndex(table, field))
			return err
		}
	}

	err := m.Execute(ctx, func(ctx context.Context, txn Txn) error {
		for _, tbl := range []string{"Person", "DriversLicense"} {
			if err := create(tbl, "PersonId")(ctx, txn); err != nil {
				return err
			}
		}
		if err := create("Vehicle", "VIN")(ctx, txn); err != nil {
			return err
		}
		// another transaction commits Vehicle(VIN) first
		return m.Execute(ctx, create("Vehicle", "VIN"))
	})
	assert.ErrorIs(t, err, ErrIndexExists)

	assert.Empty(t, m.Indexes("Person"))
	assert.Empty(t, m.Indexes("DriversLicense"))
	assert.Equal(t, []string{"[VIN]"}, m.Indexes("Vehicle"))
}
