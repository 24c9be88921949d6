// Package auth signs staff in with Discord and guards the station and API key
// routes with a JWT cookie or an API key.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/qr-checkin/internal/config"
	"github.com/gdg-garage/qr-checkin/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const (
	DiscordAuthorizeEndpoint = "https://discord.com/api/oauth2/authorize"
	DiscordTokenEndpoint     = "https://discord.com/api/oauth2/token"
	DiscordUserAPI           = "https://discord.com/api/users/@me"
	DiscordUserGuildsAPI     = "https://discord.com/api/users/@me/guilds"

	CookieName      = "auth_token"
	StateCookieName = "oauth_state"
	APIKeyHeader    = "X-API-KEY"

	TokenDuration = 24 * time.Hour
)

type AuthHandler struct {
	oauthConfig *oauth2.Config
	db          *gorm.DB
	cfg         *config.Config
	log         zerolog.Logger

	userURL   string
	guildsURL string
	now       func() time.Time
}

func NewAuthHandler(cfg *config.Config, db *gorm.DB, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURL,
			Scopes:       []string{"identify", "email", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  DiscordAuthorizeEndpoint,
				TokenURL: DiscordTokenEndpoint,
			},
		},
		db:        db,
		cfg:       cfg,
		log:       log.With().Str("component", "auth").Logger(),
		userURL:   DiscordUserAPI,
		guildsURL: DiscordUserGuildsAPI,
		now:       time.Now,
	}
}

type LoginOutput struct {
	Status    int
	Location  string      `header:"Location"`
	SetCookie http.Cookie `header:"Set-Cookie"`
}

// HandleLogin redirects to Discord. The state is echoed back in a cookie and
// checked by the callback.
func (h *AuthHandler) HandleLogin(ctx context.Context, input *struct{}) (*LoginOutput, error) {
	state, err := randomState()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to start login")
	}

	return &LoginOutput{
		Status:   http.StatusTemporaryRedirect,
		Location: h.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline),
		SetCookie: http.Cookie{
			Name:     StateCookieName,
			Value:    state,
			Expires:  h.now().Add(10 * time.Minute),
			HttpOnly: true,
			Path:     "/",
		},
	}, nil
}

type CallbackInput struct {
	Code   string `query:"code"`
	State  string `query:"state"`
	Cookie string `header:"Cookie"`
}

type CallbackOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Message string `json:"message"`
	}
}

func (h *AuthHandler) HandleCallback(ctx context.Context, input *CallbackInput) (*CallbackOutput, error) {
	if input.Code == "" {
		return nil, huma.Error400BadRequest("Code not found")
	}
	state, err := readCookie(input.Cookie, StateCookieName)
	if err != nil || state == "" || state != input.State {
		return nil, huma.Error400BadRequest("Invalid OAuth state")
	}

	token, err := h.oauthConfig.Exchange(ctx, input.Code)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to exchange token")
		return nil, huma.Error500InternalServerError("Failed to exchange token")
	}
	client := h.oauthConfig.Client(ctx, token)

	if h.cfg.DiscordGuildID != "" {
		var guilds []struct {
			ID string `json:"id"`
		}
		if err := getJSON(ctx, client, h.guildsURL, &guilds); err != nil {
			h.log.Error().Err(err).Msg("Failed to get user guilds")
			return nil, huma.Error500InternalServerError("Failed to get user guilds")
		}

		isMember := false
		for _, g := range guilds {
			if g.ID == h.cfg.DiscordGuildID {
				isMember = true
				break
			}
		}
		if !isMember {
			return nil, huma.Error403Forbidden("Access denied: You are not a member of the required guild.")
		}
	}

	var discordUser struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Avatar   string `json:"avatar"`
	}
	if err := getJSON(ctx, client, h.userURL, &discordUser); err != nil {
		h.log.Error().Err(err).Msg("Failed to get user info")
		return nil, huma.Error500InternalServerError("Failed to get user info")
	}

	var staff models.Staff
	if err := h.db.WithContext(ctx).FirstOrInit(&staff, models.Staff{DiscordID: discordUser.ID}).Error; err != nil {
		return nil, huma.Error500InternalServerError("Database error")
	}
	staff.Username = discordUser.Username
	staff.Email = discordUser.Email
	staff.Avatar = discordUser.Avatar
	if err := h.db.WithContext(ctx).Save(&staff).Error; err != nil {
		return nil, huma.Error500InternalServerError("Failed to save user")
	}

	jwtToken, err := h.GenerateToken(staff.ID)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to generate token")
	}

	h.log.Info().Uint("staff_id", staff.ID).Str("username", staff.Username).Msg("Staff signed in")

	out := &CallbackOutput{SetCookie: h.sessionCookie(jwtToken)}
	out.Body.Message = fmt.Sprintf("Welcome %s! You are logged in.", staff.Username)
	return out, nil
}

type MeOutput struct {
	Body struct {
		ID       uint   `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Avatar   string `json:"avatar"`
	}
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *struct{}) (*MeOutput, error) {
	staffID, err := StaffID(ctx)
	if err != nil {
		return nil, err
	}

	var staff models.Staff
	if err := h.db.WithContext(ctx).First(&staff, staffID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error401Unauthorized("Unknown user")
		}
		return nil, huma.Error500InternalServerError("Database error")
	}

	out := &MeOutput{}
	out.Body.ID = staff.ID
	out.Body.Username = staff.Username
	out.Body.Email = staff.Email
	out.Body.Avatar = staff.Avatar
	return out, nil
}

func (h *AuthHandler) GenerateToken(staffID uint) (string, error) {
	claims := jwt.MapClaims{
		"staff_id": staffID,
		"exp":      h.now().Add(TokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

// ParseToken returns the staff id and expiry of a valid session token.
func (h *AuthHandler) ParseToken(tokenString string) (uint, time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	}, jwt.WithTimeFunc(h.now))
	if err != nil || !token.Valid {
		return 0, time.Time{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, time.Time{}, ErrInvalidToken
	}
	staffID, ok := claims["staff_id"].(float64)
	if !ok {
		return 0, time.Time{}, ErrInvalidClaims
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0, time.Time{}, ErrInvalidClaims
	}
	return uint(staffID), exp.Time, nil
}

func (h *AuthHandler) sessionCookie(token string) http.Cookie {
	return http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  h.now().Add(TokenDuration),
		HttpOnly: true,
		Path:     "/",
	}
}

func getJSON(ctx context.Context, client *http.Client, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
