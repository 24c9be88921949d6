package checkin

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/gdg-garage/qr-checkin/internal/apperr"
	"github.com/gdg-garage/qr-checkin/internal/cooldown"
	"github.com/gdg-garage/qr-checkin/internal/database"
	"github.com/gdg-garage/qr-checkin/internal/metrics"
	"github.com/gdg-garage/qr-checkin/internal/models"
	"github.com/gdg-garage/qr-checkin/internal/notifier"
	"github.com/gdg-garage/qr-checkin/internal/qr"
	"github.com/gdg-garage/qr-checkin/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
)

// countingStore records how often the backing store is read and written.
type countingStore struct {
	store.Registrations
	gets, writes int
	getErr       error
}

func (c *countingStore) Get(ctx context.Context, id string) (*models.Registration, error) {
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.Registrations.Get(ctx, id)
}

func (c *countingStore) RecordCheckIn(ctx context.Context, id string, stamp models.CheckInStamp) (*models.Registration, error) {
	c.writes++
	return c.Registrations.RecordCheckIn(ctx, id, stamp)
}

type ValidatorSuite struct {
	suite.Suite
	ctx       context.Context
	backing   *store.Gorm
	store     *countingStore
	cache     *cooldown.Memory
	metrics   *metrics.Metrics
	validator *Validator
	now       time.Time
	reg       *models.Registration
}

func TestValidatorSuite(t *testing.T) {
	suite.Run(t, new(ValidatorSuite))
}

func (s *ValidatorSuite) SetupTest() {
	db, err := database.OpenInMemory()
	s.Require().NoError(err)

	s.ctx = context.Background()
	s.backing = store.NewGorm(db)
	s.store = &countingStore{Registrations: s.backing}
	s.cache = cooldown.NewMemory()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.now = time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)

	s.validator = NewValidator(s.store, s.cache, notifier.Nop{}, s.metrics, zerolog.New(io.Discard), Options{
		Station:  "front-door",
		Location: time.UTC,
	}).WithClock(func() time.Time { return s.now })

	s.reg = models.NewRegistration(models.Attendee{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Phone:     "555-0100",
		Email:     "ada@x.com",
	}, s.now)
	s.Require().NoError(s.backing.Create(s.ctx, s.reg))
}

func (s *ValidatorSuite) payload(mutate func(*qr.Payload)) string {
	p := qr.NewPayload(s.reg.ID, s.reg.Attendee)
	if mutate != nil {
		mutate(&p)
	}
	raw, err := qr.Encode(p)
	s.Require().NoError(err)
	return raw
}

func (s *ValidatorSuite) stored() *models.Registration {
	reg, err := s.backing.Get(s.ctx, s.reg.ID)
	s.Require().NoError(err)
	return reg
}

func (s *ValidatorSuite) TestSuccess() {
	out, err := s.validator.Validate(s.ctx, s.payload(nil))
	s.Require().NoError(err)

	s.Equal(1, out.Registration.TotalCheckIns)
	s.Equal("2026-10-18T09:30:00.000Z", out.CheckIn.Timestamp)
	s.Equal("10/18/2026", out.CheckIn.Date)
	s.Equal("9:30:00 AM", out.CheckIn.Time)
	s.Equal(&out.CheckIn, out.Registration.LastCheckIn)

	reg := s.stored()
	s.Equal(1, reg.TotalCheckIns)
	s.Require().Len(reg.CheckIns, 1)
	s.Equal(out.CheckIn, reg.CheckIns[0].CheckInStamp)

	entry, err := s.cache.Get(s.ctx, s.reg.ID)
	s.Require().NoError(err)
	s.Require().NotNil(entry)
	s.Equal(s.now, entry.ScannedAt)
	s.Equal("Ada", entry.FirstName)
	s.Equal("Lovelace", entry.LastName)

	s.Equal(1.0, testutil.ToFloat64(s.metrics.CheckIns.WithLabelValues(metrics.OutcomeSuccess)))
}

func (s *ValidatorSuite) TestRescanWithinWindowIsRejectedLocally() {
	_, err := s.validator.Validate(s.ctx, s.payload(nil))
	s.Require().NoError(err)
	s.Equal(1, s.store.gets)

	s.now = s.now.Add(5*time.Hour + 59*time.Minute)
	_, err = s.validator.Validate(s.ctx, s.payload(nil))
	s.ErrorIs(err, ErrAlreadyScanned)
	s.Equal("This code was already scanned within the last 6 hours.", err.Error())

	s.Equal(1, s.store.gets, "rejection must not read the store")
	s.Equal(1, s.store.writes)
	s.Equal(1, s.stored().TotalCheckIns)
}

func (s *ValidatorSuite) TestRescanAfterWindowSucceeds() {
	s.Require().NoError(s.cache.Set(s.ctx, s.reg.ID, cooldown.Entry{ScannedAt: s.now.Add(-6*time.Hour - time.Second)}))
	_, err := s.backing.RecordCheckIn(s.ctx, s.reg.ID, models.CheckInStamp{Timestamp: "earlier"})
	s.Require().NoError(err)

	out, err := s.validator.Validate(s.ctx, s.payload(nil))
	s.Require().NoError(err)
	s.Equal(2, out.Registration.TotalCheckIns)
	s.Equal(2, s.stored().TotalCheckIns)
}

func (s *ValidatorSuite) TestNotFoundWritesNoCooldownEntry() {
	raw := s.payload(func(p *qr.Payload) { p.ID = "unknown-id" })

	_, err := s.validator.Validate(s.ctx, raw)
	s.ErrorIs(err, ErrNotFound)
	s.Equal("Registration not found in database", err.Error())

	entry, err := s.cache.Get(s.ctx, "unknown-id")
	s.Require().NoError(err)
	s.Nil(entry)
	s.Equal(0, s.store.writes)
}

func (s *ValidatorSuite) TestEmailMismatchDoesNotIncrement() {
	raw := s.payload(func(p *qr.Payload) { p.Email = "mallory@x.com" })

	_, err := s.validator.Validate(s.ctx, raw)
	s.ErrorIs(err, ErrEmailMismatch)

	s.Equal(0, s.stored().TotalCheckIns)
	s.Equal(0, s.store.writes)
	entry, err := s.cache.Get(s.ctx, s.reg.ID)
	s.Require().NoError(err)
	s.Nil(entry)
}

func (s *ValidatorSuite) TestEmailComparisonIsExact() {
	raw := s.payload(func(p *qr.Payload) { p.Email = "ADA@x.com" })

	_, err := s.validator.Validate(s.ctx, raw)
	s.ErrorIs(err, ErrEmailMismatch)
}

func (s *ValidatorSuite) TestMalformed() {
	for _, raw := range []string{"not json", `{"email":"ada@x.com"}`} {
		_, err := s.validator.Validate(s.ctx, raw)
		s.ErrorIs(err, ErrMalformedCode)
		s.ErrorIs(err, qr.ErrMalformed)
	}
	_, err := s.validator.Validate(s.ctx, `{"email":"ada@x.com"}`)
	s.Equal("Invalid QR code format: missing ID", err.Error())
	s.Equal(0, s.store.gets)
}

func (s *ValidatorSuite) TestStoreFailureSurfacesUnderlyingText() {
	s.store.getErr = errors.New("deadline exceeded")

	_, err := s.validator.Validate(s.ctx, s.payload(nil))
	s.Equal(apperr.CodeStoreFailure, apperr.CodeOf(err))
	s.Contains(err.Error(), "deadline exceeded")

	entry, cacheErr := s.cache.Get(s.ctx, s.reg.ID)
	s.Require().NoError(cacheErr)
	s.Nil(entry)
}

func (s *ValidatorSuite) TestEvictOlderThan() {
	s.Require().NoError(s.cache.Set(s.ctx, "old", cooldown.Entry{ScannedAt: s.now.Add(-7 * time.Hour)}))
	s.Require().NoError(s.cache.Set(s.ctx, "new", cooldown.Entry{ScannedAt: s.now.Add(-time.Hour)}))

	n, err := s.validator.EvictOlderThan(s.ctx, 6*time.Hour)
	s.Require().NoError(err)
	s.Equal(1, n)
}

// Register, scan, re-scan immediately.
func (s *ValidatorSuite) TestScenario() {
	s.Equal(0, s.stored().TotalCheckIns)

	out, err := s.validator.Validate(s.ctx, s.payload(nil))
	s.Require().NoError(err)
	s.Equal(1, out.Registration.TotalCheckIns)
	s.NotNil(out.Registration.LastCheckIn)

	_, err = s.validator.Validate(s.ctx, s.payload(nil))
	s.ErrorIs(err, ErrAlreadyScanned)
	s.Equal(1, s.stored().TotalCheckIns)
}

func TestHumanWindow(t *testing.T) {
	cases := map[time.Duration]string{
		6 * time.Hour:    "6 hours",
		time.Hour:        "hour",
		90 * time.Minute: "1h30m0s",
	}
	for in, want := range cases {
		if got := humanWindow(in); got != want {
			t.Errorf("humanWindow(%s) = %q, want %q", in, got, want)
		}
	}
}
