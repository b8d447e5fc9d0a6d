package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ledgersetup/ledger"
)

// Ensurer creates missing secondary indexes on a ledger, one request at a
// time. It never owns the client.
type Ensurer struct {
	client    ledger.Client
	dialect   ledger.Dialect
	policy    MatchPolicy
	lockKey   string
	observers []Observer
	logger    *slog.Logger
}

type Option func(*Ensurer)

func WithMatchPolicy(p MatchPolicy) Option {
	return func(e *Ensurer) { e.policy = p }
}

// WithLockKey names the lock EnsureAll holds for the whole run when the
// client implements ledger.Locker. An empty key disables locking.
func WithLockKey(key string) Option {
	return func(e *Ensurer) { e.lockKey = key }
}

func WithObserver(o Observer) Option {
	return func(e *Ensurer) { e.observers = append(e.observers, o) }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Ensurer) { e.logger = l }
}

func New(client ledger.Client, opts ...Option) *Ensurer {
	e := &Ensurer{
		client:  client,
		dialect: client.Dialect(),
		policy:  MatchExact,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnsureAll ensures every request in order and stops at the first failure,
// returned as *EnsureError. Indexes created before the failure stay.
func (e *Ensurer) EnsureAll(ctx context.Context, manifest []IndexRequest) error {
	runID := uuid.NewString()
	logger := e.logger.With(slog.String("run_id", runID))

	if locker, ok := e.client.(ledger.Locker); ok && e.lockKey != "" {
		unlock, err := locker.Lock(ctx, e.lockKey)
		if err != nil {
			return fmt.Errorf("acquire setup lock %q: %w", e.lockKey, err)
		}
		logger.Debug("setup lock acquired", slog.String("key", e.lockKey))
		defer func() {
			if err := unlock(); err != nil {
				logger.Warn("release setup lock", slog.String("key", e.lockKey), slog.Any("error", err))
			}
		}()
	}

	created := 0
	for i, req := range manifest {
		start := time.Now()
		action, err := e.ensureOne(ctx, logger, req)
		e.notify(ctx, logger, Result{
			RunID:    runID,
			Position: i,
			Request:  req,
			Action:   action,
			Err:      err,
			Duration: time.Since(start),
		})
		if err != nil {
			logger.Error("index setup aborted",
				slog.String("table", req.TableName),
				slog.String("field", req.FieldName),
				slog.Int("entry", i+1),
				slog.Int("done", i),
				slog.Any("error", err))
			return &EnsureError{Request: req, Position: i, Err: err}
		}
		if action == Created {
			created++
		}
	}

	logger.Info("index setup complete",
		slog.Int("requests", len(manifest)),
		slog.Int("created", created),
		slog.String("dialect", e.dialect.Name))
	return nil
}

// EnsureOne ensures a single request outside of a run.
func (e *Ensurer) EnsureOne(ctx context.Context, req IndexRequest) (IndexAction, error) {
	action, err := e.ensureOne(ctx, e.logger, req)
	if err != nil {
		return 0, &EnsureError{Request: req, Position: -1, Err: err}
	}
	return action, nil
}

func (e *Ensurer) ensureOne(ctx context.Context, logger *slog.Logger, req IndexRequest) (IndexAction, error) {
	if err := req.Validate(); err != nil {
		return 0, &CreateError{Table: req.TableName, Field: req.FieldName, Err: err}
	}

	exists, err := e.IndexExists(ctx, req.TableName, req.FieldName)
	if err != nil {
		return 0, err
	}
	if exists {
		logger.Info("index already exists",
			slog.String("table", req.TableName),
			slog.String("field", req.FieldName))
		return AlreadyExists, nil
	}

	logger.Info("index does not exist, creating",
		slog.String("table", req.TableName),
		slog.String("field", req.FieldName))

	stmt := e.dialect.CreateIndex(req.TableName, req.FieldName)
	err = e.client.Execute(ctx, func(ctx context.Context, txn ledger.Txn) error {
		rs, err := txn.ExecuteStatement(ctx, stmt)
		if err != nil {
			return err
		}
		return rs.Close()
	})
	switch {
	case errors.Is(err, ledger.ErrIndexExists):
		// Lost a race with another setup run; the index is there either way.
		logger.Warn("index created concurrently",
			slog.String("table", req.TableName),
			slog.String("field", req.FieldName))
		return AlreadyExists, nil
	case err != nil:
		return 0, &CreateError{Table: req.TableName, Field: req.FieldName, Statement: stmt, Err: err}
	}
	return Created, nil
}

// IndexExists reports whether the first catalog row for table lists an
// index expression matching field under the configured policy. A table
// missing from the catalog has no indexes.
func (e *Ensurer) IndexExists(ctx context.Context, table, field string) (bool, error) {
	var found bool
	err := e.client.Execute(ctx, func(ctx context.Context, txn ledger.Txn) error {
		found = false
		rs, err := txn.ExecuteStatement(ctx, e.dialect.CatalogQuery, table)
		if err != nil {
			return err
		}
		defer rs.Close()
		if !rs.Next() {
			return rs.Err()
		}
		exprs, err := indexExprs(rs.Record())
		if err != nil {
			return err
		}
		for _, expr := range exprs {
			if e.policy.matches(expr, field) {
				found = true
				break
			}
		}
		return nil
	})
	if err != nil {
		return false, &QueryError{Table: table, Field: field, Err: err}
	}
	return found, nil
}

func indexExprs(rec ledger.Record) ([]string, error) {
	var items []map[string]any
	switch v := rec["indexes"].(type) {
	case nil:
		return nil, nil
	case []any:
		for _, it := range v {
			switch m := it.(type) {
			case ledger.Record:
				items = append(items, m)
			case map[string]any:
				items = append(items, m)
			default:
				return nil, fmt.Errorf("unexpected index entry of type %T", it)
			}
		}
	case []ledger.Record:
		for _, m := range v {
			items = append(items, m)
		}
	case []map[string]any:
		items = v
	default:
		return nil, fmt.Errorf("unexpected indexes field of type %T", v)
	}

	exprs := make([]string, 0, len(items))
	for _, m := range items {
		expr, ok := m["expr"].(string)
		if !ok {
			return nil, fmt.Errorf("index entry without string expr: %v", m)
		}
		exprs = append(exprs, expr)
	}
	return exprs, nil
}

func (e *Ensurer) notify(ctx context.Context, logger *slog.Logger, r Result) {
	for _, o := range e.observers {
		if err := o.OnResult(ctx, r); err != nil {
			logger.Warn("index observer failed",
				slog.String("table", r.Request.TableName),
				slog.String("field", r.Request.FieldName),
				slog.Any("error", err))
		}
	}
}
