package qr

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/gdg-garage/qr-checkin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := NewPayload("reg-123", models.Attendee{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Phone:     "555-0100",
		Email:     "ada@x.com",
	})

	raw, err := Encode(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"reg-123","firstName":"Ada","lastName":"Lovelace","phone":"555-0100","email":"ada@x.com"}`, raw)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, p, got)
	assert.Equal(t, "Ada Lovelace", got.Attendee().DisplayName())
}

func TestDecodeMalformed(t *testing.T) {
	for _, raw := range []string{
		"",
		"hello",
		"https://example.com/ticket/42",
		"[1,2,3]",
		`{"firstName":"Ada","email":"ada@x.com"}`,
		`{"id":"","email":"ada@x.com"}`,
		`{"id":42}`,
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := Decode(raw)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestDecodeIgnoresUnknownFields(t *testing.T) {
	p, err := Decode(`{"id":"abc","email":"ada@x.com","status":"active"}`)
	require.NoError(t, err)
	assert.Equal(t, "abc", p.ID)
	assert.Equal(t, "ada@x.com", p.Email)
}

func TestPNG(t *testing.T) {
	raw, err := Encode(Payload{ID: "reg-123", Email: "ada@x.com"})
	require.NoError(t, err)

	b, err := PNG(raw, 256)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
}

func TestDownloadName(t *testing.T) {
	assert.Equal(t, "qrcode-Ada-Lovelace.png", DownloadName("Ada", "Lovelace"))
}
