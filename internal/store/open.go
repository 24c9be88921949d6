package store

import (
	"context"

	"github.com/gdg-garage/qr-checkin/internal/config"
	"gorm.io/gorm"
)

// Open returns the registrations adapter selected by cfg.StoreDriver. The
// returned close function releases what Open acquired; db is owned by the caller.
func Open(ctx context.Context, cfg *config.Config, db *gorm.DB) (Registrations, func(context.Context) error, error) {
	if cfg.StoreDriver != config.StoreMongo {
		return NewGorm(db), func(context.Context) error { return nil }, nil
	}

	s, client, err := DialMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		return nil, nil, err
	}
	return s, client.Disconnect, nil
}
