package domain

import "context"

// Tx exposes repositories bound to a single database transaction.
type Tx interface {
	Complaints() ComplaintRepository
	Audit() AuditRepository
	Identities() IdentityRepository
}

// TxRunner runs fn in a transaction, committing when fn returns nil and
// rolling back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
