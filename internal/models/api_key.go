package models

import (
	"time"

	"gorm.io/gorm"
)

// APIKey lets an unattended scanning device authenticate on behalf of a staff member.
type APIKey struct {
	gorm.Model
	StaffID    uint       `json:"staff_id"`
	Staff      Staff      `json:"-"`
	Key        string     `json:"key" gorm:"uniqueIndex"`
	Name       string     `json:"name"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}
