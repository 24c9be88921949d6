// Package checkin validates scanned registration codes and records check-ins.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gdg-garage/qr-checkin/internal/apperr"
	"github.com/gdg-garage/qr-checkin/internal/cooldown"
	"github.com/gdg-garage/qr-checkin/internal/metrics"
	"github.com/gdg-garage/qr-checkin/internal/models"
	"github.com/gdg-garage/qr-checkin/internal/notifier"
	"github.com/gdg-garage/qr-checkin/internal/qr"
	"github.com/gdg-garage/qr-checkin/internal/store"
	"github.com/rs/zerolog"
)

var (
	ErrMalformedCode  = apperr.New(apperr.CodeMalformedCode, "Invalid QR code format")
	ErrAlreadyScanned = apperr.New(apperr.CodeAlreadyScanned, "Already scanned")
	ErrNotFound       = apperr.New(apperr.CodeNotFound, "Registration not found in database")
	ErrEmailMismatch  = apperr.New(apperr.CodeEmailMismatch, "Invalid QR code data: email mismatch")
)

const DefaultWindow = 6 * time.Hour

type Options struct {
	Station    string
	Window     time.Duration
	Location   *time.Location
	DateLayout string
	TimeLayout string
}

// Outcome is a recorded check-in.
type Outcome struct {
	Payload      qr.Payload
	Registration *models.Registration
	CheckIn      models.CheckInStamp
}

// Validator runs the check-in steps for one scanning station. Its cool-down
// cache is local to that station.
type Validator struct {
	store    store.Registrations
	cache    cooldown.Cache
	notifier notifier.Notifier
	metrics  *metrics.Metrics
	log      zerolog.Logger
	opts     Options
	now      func() time.Time
}

func NewValidator(s store.Registrations, c cooldown.Cache, n notifier.Notifier, m *metrics.Metrics, log zerolog.Logger, opts Options) *Validator {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.DateLayout == "" {
		opts.DateLayout = "1/2/2006"
	}
	if opts.TimeLayout == "" {
		opts.TimeLayout = "3:04:05 PM"
	}
	return &Validator{
		store:    s,
		cache:    c,
		notifier: n,
		metrics:  m,
		log:      log.With().Str("component", "checkin").Str("station", opts.Station).Logger(),
		opts:     opts,
		now:      time.Now,
	}
}

// WithClock replaces the time source.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate checks a decoded QR text and, when every check passes, records the
// check-in and remembers it in the cool-down cache. Rejections never write.
func (v *Validator) Validate(ctx context.Context, raw string) (*Outcome, error) {
	payload, err := qr.Decode(raw)
	if err != nil {
		v.metrics.CheckIns.WithLabelValues(metrics.OutcomeMalformed).Inc()
		return nil, apperr.Wrap(err, apperr.CodeMalformedCode, "Invalid QR code format: "+strings.TrimPrefix(err.Error(), qr.ErrMalformed.Error()+": "))
	}

	entry, err := v.cache.Get(ctx, payload.ID)
	if err != nil {
		v.metrics.CheckIns.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, apperr.Wrap(err, apperr.CodeStoreFailure, "Error reading scan history: "+err.Error())
	}
	if entry != nil && entry.Within(v.now(), v.opts.Window) {
		v.metrics.CheckIns.WithLabelValues(metrics.OutcomeAlreadyScanned).Inc()
		v.log.Info().Str("id", payload.ID).Time("last_scan", entry.ScannedAt).Msg("Code already scanned")
		return nil, &apperr.Error{
			Code:    apperr.CodeAlreadyScanned,
			Message: fmt.Sprintf("This code was already scanned within the last %s.", humanWindow(v.opts.Window)),
		}
	}

	start := time.Now()
	reg, err := v.store.Get(ctx, payload.ID)
	v.metrics.ObserveStore("get", start)
	if errors.Is(err, store.ErrNotFound) {
		v.metrics.CheckIns.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return nil, ErrNotFound
	}
	if err != nil {
		v.metrics.CheckIns.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, apperr.Wrap(err, apperr.CodeStoreFailure, "Error processing QR code: "+err.Error())
	}

	if reg.Email != payload.Email {
		v.metrics.CheckIns.WithLabelValues(metrics.OutcomeEmailMismatch).Inc()
		v.log.Warn().Str("id", payload.ID).Msg("Email mismatch on scanned code")
		return nil, ErrEmailMismatch
	}

	now := v.now()
	stamp := models.NewCheckInStamp(now, v.opts.Location, v.opts.DateLayout, v.opts.TimeLayout)

	start = time.Now()
	updated, err := v.store.RecordCheckIn(ctx, reg.ID, stamp)
	v.metrics.ObserveStore("record_check_in", start)
	if errors.Is(err, store.ErrNotFound) {
		v.metrics.CheckIns.WithLabelValues(metrics.OutcomeNotFound).Inc()
		return nil, ErrNotFound
	}
	if err != nil {
		v.metrics.CheckIns.WithLabelValues(metrics.OutcomeError).Inc()
		return nil, apperr.Wrap(err, apperr.CodeStoreFailure, "Error processing QR code: "+err.Error())
	}

	// The check-in is already stored; a cache failure only weakens the
	// cool-down for this station.
	err = v.cache.Set(ctx, reg.ID, cooldown.Entry{ScannedAt: now, FirstName: reg.FirstName, LastName: reg.LastName})
	if err != nil {
		v.log.Error().Err(err).Str("id", reg.ID).Msg("Failed to remember scan")
	}

	v.metrics.CheckIns.WithLabelValues(metrics.OutcomeSuccess).Inc()
	v.log.Info().Str("id", reg.ID).Int("total", updated.TotalCheckIns).Msg("Check-in processed successfully")

	if err := v.notifier.NotifyCheckIn(*updated, v.opts.Station); err != nil {
		v.log.Warn().Err(err).Str("id", reg.ID).Msg("Failed to send check-in notification")
	}

	return &Outcome{Payload: payload, Registration: updated, CheckIn: stamp}, nil
}

// EvictOlderThan drops cool-down entries older than age.
func (v *Validator) EvictOlderThan(ctx context.Context, age time.Duration) (int, error) {
	return v.cache.EvictOlderThan(ctx, v.now().Add(-age))
}

func (v *Validator) Window() time.Duration {
	return v.opts.Window
}

func humanWindow(d time.Duration) string {
	if d%time.Hour == 0 {
		h := int(d / time.Hour)
		if h == 1 {
			return "hour"
		}
		return fmt.Sprintf("%d hours", h)
	}
	return d.String()
}
