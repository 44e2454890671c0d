package ports

import "github.com/Anindya-Karmaker/openua-bioreactor/internal/domain"

// SampleStore persists readings into a single time-ordered table keyed on
// timestamp.
type SampleStore interface {
	// InsertBulk writes the batch in one transaction with insert-or-ignore
	// semantics: either all new rows land or none do, and timestamps that
	// already exist are silently skipped.
	InsertBulk(records []domain.Reading) error

	// QueryRange returns rows with startTS <= timestamp <= endTS, ascending.
	QueryRange(startTS, endTS float64) ([]domain.Reading, error)

	// QueryAll returns every row, ascending by timestamp.
	QueryAll() ([]domain.Reading, error)

	// FirstStarted returns the timestamp of the earliest STARTED row, or
	// ok=false when the store holds none.
	FirstStarted() (ts float64, ok bool, err error)

	// Columns reports the channel keys the store's table carries, in column
	// order, excluding timestamp and status.
	Columns() []string

	Close() error
}
