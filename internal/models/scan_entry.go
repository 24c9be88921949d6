package models

import "time"

// ScanEntry is a persisted cool-down cache row, scoped to one scanning station.
type ScanEntry struct {
	Station        string    `gorm:"primaryKey;size:64"`
	RegistrationID string    `gorm:"primaryKey;size:36"`
	ScannedAt      time.Time `gorm:"index"`
	FirstName      string
	LastName       string
}
