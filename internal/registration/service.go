package registration

import (
	"context"
	"errors"
	"time"

	"github.com/gdg-garage/qr-checkin/internal/apperr"
	"github.com/gdg-garage/qr-checkin/internal/metrics"
	"github.com/gdg-garage/qr-checkin/internal/models"
	"github.com/gdg-garage/qr-checkin/internal/notifier"
	"github.com/gdg-garage/qr-checkin/internal/qr"
	"github.com/gdg-garage/qr-checkin/internal/store"
	"github.com/rs/zerolog"
)

var (
	ErrMissingField   = apperr.New(apperr.CodeMissingField, "All fields are required.")
	ErrDuplicateEmail = apperr.New(apperr.CodeDuplicateEmail, "This email is already registered.")
	ErrNotFound       = apperr.New(apperr.CodeNotFound, "Registration not found")
)

// Result is what the registration screen shows after a successful submit.
type Result struct {
	Registration *models.Registration
	Payload      string
}

type Service struct {
	store    store.Registrations
	notifier notifier.Notifier
	metrics  *metrics.Metrics
	log      zerolog.Logger
	qrSize   int
	now      func() time.Time
}

func NewService(s store.Registrations, n notifier.Notifier, m *metrics.Metrics, log zerolog.Logger, qrSize int) *Service {
	return &Service{
		store:    s,
		notifier: n,
		metrics:  m,
		log:      log.With().Str("component", "registration").Logger(),
		qrSize:   qrSize,
		now:      time.Now,
	}
}

// Submit registers a new attendee.
//
// The duplicate-email query and the insert are separate operations, so two
// concurrent submissions with the same email can both succeed.
func (s *Service) Submit(ctx context.Context, a models.Attendee) (*Result, error) {
	if a.FirstName == "" || a.LastName == "" || a.Phone == "" || a.Email == "" {
		return nil, ErrMissingField
	}

	start := time.Now()
	existing, err := s.store.FindByEmail(ctx, a.Email)
	s.metrics.ObserveStore("find_by_email", start)
	if err != nil {
		return nil, s.storeFailure(submitFailed, err)
	}
	if len(existing) > 0 {
		s.log.Info().Str("email", a.Email).Msg("Duplicate email found")
		s.metrics.DuplicateEmails.Inc()
		return nil, ErrDuplicateEmail
	}

	reg := models.NewRegistration(a, s.now())
	start = time.Now()
	err = s.store.Create(ctx, reg)
	s.metrics.ObserveStore("create", start)
	if err != nil {
		return nil, s.storeFailure(submitFailed, err)
	}

	payload, err := qr.Encode(qr.NewPayload(reg.ID, a))
	if err != nil {
		return nil, err
	}

	s.metrics.RegistrationsCreated.Inc()
	s.log.Info().Str("id", reg.ID).Msg("Registration created")

	if err := s.notifier.NotifyRegistration(*reg); err != nil {
		s.log.Warn().Err(err).Str("id", reg.ID).Msg("Failed to send registration notification")
	}

	return &Result{Registration: reg, Payload: payload}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Registration, error) {
	reg, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, s.storeFailure("Failed to load registration.", err)
	}
	return reg, nil
}

// QRCode renders the stored registration's payload for download.
func (s *Service) QRCode(ctx context.Context, id string) (png []byte, filename string, err error) {
	reg, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	payload, err := qr.Encode(qr.NewPayload(reg.ID, reg.Attendee))
	if err != nil {
		return nil, "", err
	}
	png, err = qr.PNG(payload, s.qrSize)
	if err != nil {
		return nil, "", err
	}
	return png, qr.DownloadName(reg.FirstName, reg.LastName), nil
}

const submitFailed = "Failed to submit form. Please try again."

// storeFailure keeps the underlying error text visible to the user.
func (s *Service) storeFailure(msg string, err error) error {
	s.log.Error().Err(err).Msg(msg)
	return apperr.Wrap(err, apperr.CodeStoreFailure, msg+" Error: "+err.Error())
}
