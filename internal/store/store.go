// Package store persists registration records.
//
// Adapters implement RecordCheckIn atomically where the backend allows it:
// the history entry is appended and the counter is incremented server-side,
// so concurrent check-ins from different stations never lose an entry.
// The duplicate-email check in registration is still a separate query
// followed by an insert, with no transactional guarantee across the two.
package store

import (
	"context"
	"errors"

	"github.com/gdg-garage/qr-checkin/internal/models"
)

var ErrNotFound = errors.New("registration not found")

// Registrations is the document collection of attendee records.
type Registrations interface {
	// Create assigns the identifier and stores the record.
	Create(ctx context.Context, reg *models.Registration) error
	// Get returns the record with its full check-in history, or ErrNotFound.
	Get(ctx context.Context, id string) (*models.Registration, error)
	// FindByEmail returns records whose email matches exactly.
	FindByEmail(ctx context.Context, email string) ([]models.Registration, error)
	// RecordCheckIn appends stamp to the history, increments the counter and
	// overwrites LastCheckIn. It returns the updated record.
	RecordCheckIn(ctx context.Context, id string, stamp models.CheckInStamp) (*models.Registration, error)
}
