package sources

import (
	"context"

	"ledgerbook/internal/core"
)

// Ports for the inbound record collaborators. Every adapter returns raw,
// unnormalized records; field naming and date encoding differ per backend.
type (
	// TransactionLister returns the personal transactions of a user.
	TransactionLister interface {
		ListUserTransactions(ctx context.Context, userID string) ([]core.RawRecord, error)
	}

	// GroupLister returns the group memberships of a user.
	GroupLister interface {
		ListGroups(ctx context.Context, userID string) ([]core.RawRecord, error)
	}

	// GroupTransactionLister returns the transactions of one group ledger.
	GroupTransactionLister interface {
		ListGroupTransactions(ctx context.Context, groupID string) ([]core.RawRecord, error)
	}

	// Source is a backend able to serve every listing.
	Source interface {
		TransactionLister
		GroupLister
		GroupTransactionLister
	}
)
