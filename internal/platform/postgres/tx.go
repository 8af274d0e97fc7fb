package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/phrazzld/teamtask-api/internal/platform/logger"
	"github.com/phrazzld/teamtask-api/internal/store"
	"github.com/sethvargo/go-retry"
)

// defaultRetryBase is the first backoff delay after a serialization failure.
const defaultRetryBase = 20 * time.Millisecond

// TxRunner runs units of work in serializable transactions, re-running the
// whole unit when PostgreSQL aborts it with a serialization failure or a
// deadlock.
type TxRunner struct {
	db      *sql.DB
	retries uint64
	base    time.Duration
	opts    *sql.TxOptions
	logger  *slog.Logger
}

// NewTxRunner creates a TxRunner that retries up to retries times.
func NewTxRunner(db *sql.DB, retries uint64, logger *slog.Logger) *TxRunner {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TxRunner{
		db:      db,
		retries: retries,
		base:    defaultRetryBase,
		opts:    &sql.TxOptions{Isolation: sql.LevelSerializable},
		logger:  logger.With(slog.String("component", "tx_runner")),
	}
}

// RunInTx executes fn in a transaction. Errors from fn are returned as is;
// serialization failures surface as store.ErrSerialization once retries are
// exhausted.
func (r *TxRunner) RunInTx(ctx context.Context, fn store.TxFn) error {
	log := logger.FromContextOrDefault(ctx, r.logger)

	attempt := 0
	backoff := retry.WithMaxRetries(r.retries, retry.NewExponential(r.base))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := store.RunInTransactionWithOptions(ctx, r.db, r.opts, fn)
		if err == nil {
			return nil
		}
		if IsSerializationFailure(err) {
			log.Warn("transaction aborted, retrying",
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			return retry.RetryableError(MapError(err))
		}
		return err
	})
}
