package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/qr-checkin/internal/models"
	"gorm.io/gorm"
)

var (
	ErrNoCredentials = errors.New("no token found")
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidClaims = errors.New("invalid token claims")
	ErrKeyExpired    = errors.New("API key expired")
)

type contextKey string

const staffIDKey contextKey = "staff_id"

// Principal is the authenticated caller of a request.
type Principal struct {
	StaffID uint
	// RenewedToken is set when a cookie session passed half its lifetime.
	RenewedToken string
}

// Authenticate resolves an API key first and falls back to the session cookie.
// An unknown API key is not an error on its own.
func (h *AuthHandler) Authenticate(ctx context.Context, apiKey, cookieHeader string) (*Principal, error) {
	if apiKey != "" {
		var key models.APIKey
		err := h.db.WithContext(ctx).Where("key = ?", apiKey).First(&key).Error
		switch {
		case err == nil:
			now := h.now()
			if key.ExpiresAt != nil && now.After(*key.ExpiresAt) {
				return nil, ErrKeyExpired
			}
			if err := h.db.WithContext(ctx).Model(&key).Update("last_used_at", now).Error; err != nil {
				h.log.Warn().Err(err).Uint("key_id", key.ID).Msg("Failed to record API key use")
			}
			return &Principal{StaffID: key.StaffID}, nil
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}

	tokenString, err := readCookie(cookieHeader, CookieName)
	if err != nil {
		return nil, ErrNoCredentials
	}
	staffID, exp, err := h.ParseToken(tokenString)
	if err != nil {
		return nil, err
	}

	p := &Principal{StaffID: staffID}
	if exp.Sub(h.now()) < TokenDuration/2 {
		renewed, err := h.GenerateToken(staffID)
		if err == nil {
			p.RenewedToken = renewed
		}
	}
	return p, nil
}

// Middleware guards a huma operation. The staff id is available to the
// handler through StaffID.
func (h *AuthHandler) Middleware(api huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		p, err := h.Authenticate(ctx.Context(), ctx.Header(APIKeyHeader), ctx.Header("Cookie"))
		if err != nil {
			status := http.StatusUnauthorized
			if !errors.Is(err, ErrNoCredentials) && !errors.Is(err, ErrInvalidToken) &&
				!errors.Is(err, ErrInvalidClaims) && !errors.Is(err, ErrKeyExpired) {
				h.log.Error().Err(err).Msg("Authentication lookup failed")
				status = http.StatusInternalServerError
			}
			if werr := huma.WriteErr(api, ctx, status, "Unauthorized: "+err.Error()); werr != nil {
				h.log.Error().Err(werr).Int("status", status).Msg("Failed to write authentication error")
			}
			return
		}

		if p.RenewedToken != "" {
			cookie := h.sessionCookie(p.RenewedToken)
			ctx.AppendHeader("Set-Cookie", cookie.String())
		}
		next(huma.WithValue(ctx, staffIDKey, p.StaffID))
	}
}

func WithStaffID(ctx context.Context, staffID uint) context.Context {
	return context.WithValue(ctx, staffIDKey, staffID)
}

// StaffID returns the caller set by Middleware, or a 401 error.
func StaffID(ctx context.Context) (uint, error) {
	id, ok := ctx.Value(staffIDKey).(uint)
	if !ok || id == 0 {
		return 0, huma.Error401Unauthorized("Unauthorized")
	}
	return id, nil
}

func readCookie(header, name string) (string, error) {
	if header == "" {
		return "", http.ErrNoCookie
	}
	r := http.Request{Header: http.Header{"Cookie": {header}}}
	c, err := r.Cookie(name)
	if err != nil {
		return "", err
	}
	return c.Value, nil
}
