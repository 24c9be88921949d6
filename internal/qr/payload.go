// Package qr builds the text carried by a registration QR code and renders it
// as an image. The payload is untrusted on the way back in: callers must
// re-check it against the stored record.
package qr

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gdg-garage/qr-checkin/internal/models"
)

var ErrMalformed = errors.New("malformed QR code")

type Payload struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
}

func NewPayload(id string, a models.Attendee) Payload {
	return Payload{
		ID:        id,
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Phone:     a.Phone,
		Email:     a.Email,
	}
}

func (p Payload) Attendee() models.Attendee {
	return models.Attendee{
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		Email:     p.Email,
	}
}

func Encode(p Payload) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses scanned text. Anything that is not a JSON object with a
// non-empty id is ErrMalformed.
func Decode(raw string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if p.ID == "" {
		return Payload{}, fmt.Errorf("%w: missing ID", ErrMalformed)
	}
	return p, nil
}
