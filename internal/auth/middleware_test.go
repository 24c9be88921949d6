package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/gdg-garage/qr-checkin/internal/config"
	"github.com/gdg-garage/qr-checkin/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, staffID uint, expiresIn time.Duration) string {
	claims := jwt.MapClaims{
		"staff_id": staffID,
		"exp":      time.Now().Add(expiresIn).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthenticate_SlidingSession(t *testing.T) {
	h, _ := newTestHandler(t, &config.Config{})

	t.Run("TokenRenewed", func(t *testing.T) {
		// 11h left is under half of TokenDuration.
		token := signToken(t, "test-secret", 1, 11*time.Hour)
		p, err := h.Authenticate(context.Background(), "", CookieName+"="+token)
		require.NoError(t, err)
		assert.Equal(t, uint(1), p.StaffID)
		assert.NotEmpty(t, p.RenewedToken)
		assert.NotEqual(t, token, p.RenewedToken)
	})

	t.Run("TokenNotRenewed", func(t *testing.T) {
		token := signToken(t, "test-secret", 1, 13*time.Hour)
		p, err := h.Authenticate(context.Background(), "", CookieName+"="+token)
		require.NoError(t, err)
		assert.Empty(t, p.RenewedToken)
	})

	t.Run("Expired", func(t *testing.T) {
		token := signToken(t, "test-secret", 1, -time.Minute)
		_, err := h.Authenticate(context.Background(), "", CookieName+"="+token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("NoCookie", func(t *testing.T) {
		_, err := h.Authenticate(context.Background(), "", "")
		assert.ErrorIs(t, err, ErrNoCredentials)
	})
}

func TestAuthenticate_APIKey(t *testing.T) {
	h, db := newTestHandler(t, &config.Config{})
	staff := models.Staff{DiscordID: "1", Username: "door"}
	require.NoError(t, db.Create(&staff).Error)

	past := time.Now().Add(-time.Hour)
	valid := models.APIKey{StaffID: staff.ID, Key: "valid-key", Name: "front door"}
	expired := models.APIKey{StaffID: staff.ID, Key: "old-key", Name: "old", ExpiresAt: &past}
	require.NoError(t, db.Create(&valid).Error)
	require.NoError(t, db.Create(&expired).Error)

	p, err := h.Authenticate(context.Background(), "valid-key", "")
	require.NoError(t, err)
	assert.Equal(t, staff.ID, p.StaffID)

	var reloaded models.APIKey
	require.NoError(t, db.First(&reloaded, valid.ID).Error)
	assert.NotNil(t, reloaded.LastUsedAt)

	_, err = h.Authenticate(context.Background(), "old-key", "")
	assert.ErrorIs(t, err, ErrKeyExpired)

	// An unknown key falls back to the cookie.
	_, err = h.Authenticate(context.Background(), "nope", "")
	assert.ErrorIs(t, err, ErrNoCredentials)
	p, err = h.Authenticate(context.Background(), "nope", CookieName+"="+signToken(t, "test-secret", 9, 20*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, uint(9), p.StaffID)
}

func TestMiddleware(t *testing.T) {
	h, _ := newTestHandler(t, &config.Config{})
	_, api := humatest.New(t)

	type whoamiOutput struct {
		Body struct {
			StaffID uint `json:"staffId"`
		}
	}
	huma.Register(api, huma.Operation{
		OperationID: "whoami",
		Method:      http.MethodGet,
		Path:        "/whoami",
		Middlewares: huma.Middlewares{h.Middleware(api)},
	}, func(ctx context.Context, _ *struct{}) (*whoamiOutput, error) {
		id, err := StaffID(ctx)
		if err != nil {
			return nil, err
		}
		out := &whoamiOutput{}
		out.Body.StaffID = id
		return out, nil
	})

	resp := api.Get("/whoami")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = api.Get("/whoami", "Cookie: "+CookieName+"=garbage")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = api.Get("/whoami", "Cookie: "+CookieName+"="+signToken(t, "test-secret", 5, 20*time.Hour))
	require.Equal(t, http.StatusOK, resp.Code)
	var body struct {
		StaffID uint `json:"staffId"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, uint(5), body.StaffID)
	assert.Empty(t, resp.Result().Cookies())

	resp = api.Get("/whoami", "Cookie: "+CookieName+"="+signToken(t, "test-secret", 5, time.Hour))
	require.Equal(t, http.StatusOK, resp.Code)
	cookies := resp.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
}

// brokenWriter accepts headers but fails every body write.
type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestMiddleware_LogsFailedErrorWrite(t *testing.T) {
	h, _ := newTestHandler(t, &config.Config{})
	var logs bytes.Buffer
	h.log = zerolog.New(&logs)
	_, api := humatest.New(t)

	op := &huma.Operation{Method: http.MethodGet, Path: "/whoami"}
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	ctx := humatest.NewContext(op, req, brokenWriter{httptest.NewRecorder()})

	called := false
	h.Middleware(api)(ctx, func(huma.Context) { called = true })

	assert.False(t, called)
	assert.Contains(t, logs.String(), "Failed to write authentication error")
	assert.Contains(t, logs.String(), "connection reset")
	assert.Contains(t, logs.String(), `"status":401`)
}
