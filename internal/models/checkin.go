package models

import "time"

// ISOLayout matches the millisecond UTC form used for check-in timestamps.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// CheckInStamp is a single check-in event: an ISO-8601 instant plus the
// locale date and time strings derived from it.
type CheckInStamp struct {
	Timestamp string `json:"timestamp" bson:"timestamp"`
	Date      string `json:"date" bson:"date"`
	Time      string `json:"time" bson:"time"`
}

// NewCheckInStamp formats now for storage (UTC) and for display (loc).
func NewCheckInStamp(now time.Time, loc *time.Location, dateLayout, timeLayout string) CheckInStamp {
	local := now.In(loc)
	return CheckInStamp{
		Timestamp: now.UTC().Format(ISOLayout),
		Date:      local.Format(dateLayout),
		Time:      local.Format(timeLayout),
	}
}

// CheckIn is the append-only history row behind Registration.CheckIns.
type CheckIn struct {
	ID             uint   `json:"-" bson:"-" gorm:"primaryKey"`
	RegistrationID string `json:"-" bson:"-" gorm:"index;size:36"`
	CheckInStamp   `gorm:"embedded" bson:",inline"`
	CreatedAt      time.Time `json:"-" bson:"-"`
}
