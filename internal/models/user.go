package models

import (
	"gorm.io/gorm"
)

// Staff is an operator allowed to run scanning stations.
type Staff struct {
	gorm.Model
	DiscordID string `gorm:"uniqueIndex"`
	Username  string
	Email     string
	Avatar    string
}
