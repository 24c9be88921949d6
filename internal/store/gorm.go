package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gdg-garage/qr-checkin/internal/models"
	"gorm.io/gorm"
)

// Gorm stores registrations in a relational database. The history lives in
// its own table so appends are plain inserts.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func (s *Gorm) Create(ctx context.Context, reg *models.Registration) error {
	if err := s.db.WithContext(ctx).Create(reg).Error; err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

func (s *Gorm) Get(ctx context.Context, id string) (*models.Registration, error) {
	return s.get(s.db.WithContext(ctx), id)
}

func (s *Gorm) get(tx *gorm.DB, id string) (*models.Registration, error) {
	var reg models.Registration
	err := tx.Preload("CheckIns", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	}).First(&reg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get registration %s: %w", id, err)
	}
	if reg.CheckIns == nil {
		reg.CheckIns = []models.CheckIn{}
	}
	return &reg, nil
}

func (s *Gorm) FindByEmail(ctx context.Context, email string) ([]models.Registration, error) {
	var regs []models.Registration
	if err := s.db.WithContext(ctx).Where("email = ?", email).Find(&regs).Error; err != nil {
		return nil, fmt.Errorf("query registrations by email: %w", err)
	}
	return regs, nil
}

func (s *Gorm) RecordCheckIn(ctx context.Context, id string, stamp models.CheckInStamp) (*models.Registration, error) {
	last, err := json.Marshal(stamp)
	if err != nil {
		return nil, err
	}

	var reg *models.Registration
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Registration{}).Where("id = ?", id).Updates(map[string]interface{}{
			"total_check_ins": gorm.Expr("total_check_ins + ?", 1),
			"last_check_in":   string(last),
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := tx.Create(&models.CheckIn{RegistrationID: id, CheckInStamp: stamp}).Error; err != nil {
			return err
		}

		reg, err = s.get(tx, id)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("record check-in for %s: %w", id, err)
	}
	return reg, nil
}
