package port

import "context"

// DedupCache is a best-effort fast path for dropping redelivered messages
// before opening a transaction. The authoritative duplicate check is
// LedgerTx.MarkProcessed; cache errors must not fail the handler.
type DedupCache interface {
	// FirstDelivery returns false if the message id was already seen.
	FirstDelivery(ctx context.Context, messageID string) (bool, error)
}
