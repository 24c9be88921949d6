package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const StatusActive = "active"

// Attendee holds the fields collected by the registration form.
type Attendee struct {
	FirstName string `json:"firstName" bson:"firstName"`
	LastName  string `json:"lastName" bson:"lastName"`
	Phone     string `json:"phone" bson:"phone"`
	Email     string `json:"email" bson:"email" gorm:"index"`
}

func (a Attendee) DisplayName() string {
	return a.FirstName + " " + a.LastName
}

// Registration is one attendee record. TotalCheckIns is expected to equal
// len(CheckIns); LastCheckIn duplicates the newest entry for display.
type Registration struct {
	ID       string `json:"id" bson:"_id" gorm:"primaryKey;size:36"`
	Attendee `gorm:"embedded" bson:",inline"`

	Status        string        `json:"status" bson:"status"`
	Timestamp     time.Time     `json:"timestamp" bson:"timestamp"`
	CheckIns      []CheckIn     `json:"checkIns" bson:"checkIns" gorm:"foreignKey:RegistrationID"`
	TotalCheckIns int           `json:"totalCheckIns" bson:"totalCheckIns"`
	LastCheckIn   *CheckInStamp `json:"lastCheckIn" bson:"lastCheckIn" gorm:"serializer:json;type:text"`

	CreatedAt time.Time `json:"-" bson:"-"`
	UpdatedAt time.Time `json:"-" bson:"-"`
}

// NewRegistration returns a fresh active record without an identifier.
func NewRegistration(a Attendee, now time.Time) *Registration {
	return &Registration{
		Attendee:  a,
		Status:    StatusActive,
		Timestamp: now,
		CheckIns:  []CheckIn{},
	}
}

func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
