package cooldown

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gdg-garage/qr-checkin/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Gorm persists one station's entries in the host-local scan database, so the
// cache survives restarts of the scanning host.
type Gorm struct {
	db      *gorm.DB
	station string
}

func NewGorm(db *gorm.DB, station string) *Gorm {
	return &Gorm{db: db, station: station}
}

func (g *Gorm) Get(ctx context.Context, id string) (*Entry, error) {
	var row models.ScanEntry
	err := g.db.WithContext(ctx).
		Where("station = ? AND registration_id = ?", g.station, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scan cache: %w", err)
	}
	return &Entry{ScannedAt: row.ScannedAt, FirstName: row.FirstName, LastName: row.LastName}, nil
}

func (g *Gorm) Set(ctx context.Context, id string, e Entry) error {
	row := models.ScanEntry{
		Station:        g.station,
		RegistrationID: id,
		ScannedAt:      e.ScannedAt.UTC(),
		FirstName:      e.FirstName,
		LastName:       e.LastName,
	}
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("write scan cache: %w", err)
	}
	return nil
}

func (g *Gorm) EvictOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res := g.db.WithContext(ctx).
		Where("station = ? AND scanned_at < ?", g.station, cutoff.UTC()).
		Delete(&models.ScanEntry{})
	if res.Error != nil {
		return 0, fmt.Errorf("evict scan cache: %w", res.Error)
	}
	return int(res.RowsAffected), nil
}
