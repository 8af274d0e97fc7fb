package service

import (
	"context"

	"github.com/phrazzld/teamtask-api/internal/store"
)

// TxRunner runs fn inside a database transaction, committing when fn returns
// nil. Implementations may retry fn on serialization failures, so fn must not
// have side effects outside the transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn store.TxFn) error
}
