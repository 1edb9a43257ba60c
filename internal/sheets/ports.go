package sheets

import (
	"context"

	"mywallet/internal/core"
)

// Ports for the spreadsheet ledger export.
type (
	// LedgerWriter writes t as one row, replacing an earlier row for the same
	// transaction id.
	LedgerWriter interface {
		Upsert(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// LedgerDeleter removes the row of t. A missing row is not an error.
	LedgerDeleter interface {
		Delete(ctx context.Context, t core.Transaction) error
	}

	LedgerExporter interface {
		LedgerWriter
		LedgerDeleter
	}
)
