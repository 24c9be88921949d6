package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdg-garage/qr-checkin/internal/apperr"
	"github.com/gdg-garage/qr-checkin/internal/checkin"
	"github.com/gdg-garage/qr-checkin/internal/metrics"
	"github.com/gdg-garage/qr-checkin/internal/models"
	"github.com/rs/zerolog"
)

type State string

const (
	StateIdle       State = "idle"
	StateScanning   State = "scanning"
	StateValidating State = "validating"
	StateSuccess    State = "success"
	StateRejected   State = "rejected"
)

const (
	maxLogLines   = 200
	alertDuration = 3 * time.Second
)

var (
	ErrNoCamera  = apperr.New(apperr.CodeNoCamera, "No camera selected")
	ErrRunning   = apperr.New(apperr.CodeInvalidState, "Scanner is already running")
	ErrClosed    = apperr.New(apperr.CodeInvalidState, "Scanner is closed")
	ErrBadDevice = apperr.New(apperr.CodeNoCamera, "Unknown camera")
)

type Validator interface {
	Validate(ctx context.Context, raw string) (*checkin.Outcome, error)
}

type Alert struct {
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type Snapshot struct {
	Station        string               `json:"station"`
	State          State                `json:"state"`
	Devices        []Device             `json:"devices"`
	SelectedDevice string               `json:"selectedDevice"`
	Config         Config               `json:"config"`
	Result         *models.Registration `json:"result,omitempty"`
	CheckIn        *models.CheckInStamp `json:"checkIn,omitempty"`
	Error          string               `json:"error,omitempty"`
	ErrorCode      apperr.Code          `json:"errorCode,omitempty"`
	Alert          *Alert               `json:"alert,omitempty"`
	Log            []string             `json:"log"`
}

// Session is the check-in state machine of one station:
//
//	Idle -> Scanning -> Validating -> Success | Rejected
//
// Reset returns to Idle from any state. Only one decoded frame is validated
// at a time, across resets and restarts; frames decoded meanwhile are dropped. The camera is stopped on
// success, reset and close, and only an explicit Start resumes scanning.
type Session struct {
	mu        sync.Mutex
	station   string
	camera    Camera
	validator Validator
	cfg       Config
	metrics   *metrics.Metrics
	log       zerolog.Logger
	now       func() time.Time

	state     State
	devices   []Device
	selected  string
	streaming bool
	closed    bool
	// gen invalidates callbacks from camera runs that were stopped.
	gen uint64
	// validating is set while a Validate call runs, even one whose outcome a
	// reset has already discarded. It is the single in-flight guard.
	validating bool

	result    *models.Registration
	checkIn   *models.CheckInStamp
	errMsg    string
	errCode   apperr.Code
	alert     *Alert
	debugInfo []string
}

func NewSession(station string, camera Camera, v Validator, cfg Config, m *metrics.Metrics, log zerolog.Logger) *Session {
	return &Session{
		station:   station,
		camera:    camera,
		validator: v,
		cfg:       cfg,
		metrics:   m,
		log:       log.With().Str("component", "scanner").Str("station", station).Logger(),
		now:       time.Now,
		state:     StateIdle,
	}
}

// RefreshDevices enumerates cameras. When the current selection disappears
// or nothing is selected, the last listed device is picked: on phones that
// is usually the rear camera.
func (s *Session) RefreshDevices(ctx context.Context) error {
	s.mu.Lock()
	s.debugf("Requesting camera list...")
	s.mu.Unlock()

	devices, err := s.camera.Devices(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.debugf("Error getting cameras: %v", err)
		s.setError(apperr.CodeCameraFailure, "Error accessing cameras: "+err.Error())
		return apperr.Wrap(err, apperr.CodeCameraFailure, "Error accessing cameras: "+err.Error())
	}

	s.devices = devices
	s.debugf("Found %d cameras", len(devices))
	if len(devices) == 0 {
		if !s.streaming {
			s.selected = ""
		}
		return nil
	}
	if !containsDevice(devices, s.selected) {
		s.selected = devices[len(devices)-1].ID
	}
	return nil
}

// SelectDevice chooses the camera used by the next Start.
func (s *Session) SelectDevice(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streaming {
		return ErrRunning
	}
	if !containsDevice(s.devices, id) {
		return ErrBadDevice
	}
	s.selected = id
	return nil
}

// Start opens the selected camera and begins decoding.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.streaming {
		return ErrRunning
	}

	s.debugf("Starting scanner...")
	s.clearError()

	if s.selected == "" {
		s.state = StateIdle
		s.debugf("Error in startScanning: %v", ErrNoCamera)
		s.setError(apperr.CodeNoCamera, "Failed to start scanner: "+ErrNoCamera.Error())
		return ErrNoCamera
	}

	s.gen++
	gen := s.gen
	err := s.camera.Start(s.selected, s.cfg,
		func(text string) { s.handleDecode(gen, text) },
		func(err error) { s.handleDecodeError(gen, err) },
	)
	if err != nil {
		s.state = StateIdle
		s.debugf("Error in startScanning: %v", err)
		s.setError(apperr.CodeCameraFailure, "Failed to start scanner: "+err.Error())
		return apperr.Wrap(err, apperr.CodeCameraFailure, "Failed to start scanner: "+err.Error())
	}

	s.streaming = true
	s.state = StateScanning
	s.log.Info().Str("device", s.selected).Msg("Scanner started")
	return nil
}

// Reset stops any active stream and clears the result, error and log.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopCamera("reset")
	s.state = StateIdle
	s.result = nil
	s.checkIn = nil
	s.alert = nil
	s.clearError()
	s.debugInfo = nil
}

// Close releases the camera. The session cannot be started again.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopCamera("close")
	s.state = StateIdle
	s.closed = true
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Station:        s.station,
		State:          s.state,
		Devices:        append([]Device{}, s.devices...),
		SelectedDevice: s.selected,
		Config:         s.cfg,
		Error:          s.errMsg,
		ErrorCode:      s.errCode,
		Log:            append([]string{}, s.debugInfo...),
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	if s.checkIn != nil {
		c := *s.checkIn
		snap.CheckIn = &c
	}
	if s.alert != nil && s.now().Before(s.alert.ExpiresAt) {
		a := *s.alert
		snap.Alert = &a
	}
	return snap
}

func (s *Session) handleDecode(gen uint64, text string) {
	s.mu.Lock()
	if gen != s.gen || !s.streaming {
		s.mu.Unlock()
		s.metrics.DroppedFrames.WithLabelValues("inactive").Inc()
		return
	}
	if s.validating {
		s.mu.Unlock()
		s.metrics.DroppedFrames.WithLabelValues("busy").Inc()
		s.log.Debug().Msg("Frame dropped while a scan is being validated")
		return
	}
	s.validating = true
	s.state = StateValidating
	s.debugf("Processing scan result...")
	s.mu.Unlock()

	out, err := s.validator.Validate(context.Background(), text)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.validating = false
	if gen != s.gen {
		// Reset or closed while validating; the outcome is not displayed.
		return
	}

	if err != nil {
		s.reject(err)
		return
	}

	s.stopCamera("success")
	s.state = StateSuccess
	s.result = out.Registration
	stamp := out.CheckIn
	s.checkIn = &stamp
	s.clearError()
	s.setAlert("success", "Scan Successful", fmt.Sprintf("Welcome %s", out.Registration.DisplayName()))
	s.debugf("Check-in processed successfully")
}

// reject keeps the stream running. Malformed and already-scanned codes leave
// the station scanning; the other rejections are shown until the next scan.
func (s *Session) reject(err error) {
	s.debugf("Error processing scan: %v", err)

	code := apperr.CodeOf(err)
	switch code {
	case apperr.CodeAlreadyScanned:
		s.state = StateScanning
		s.setAlert("error", "Already Scanned", err.Error())
	case apperr.CodeMalformedCode:
		s.state = StateScanning
		s.setError(code, err.Error())
	default:
		s.state = StateRejected
		s.setError(code, err.Error())
	}
}

func (s *Session) handleDecodeError(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}
	s.debugf("Scanning error: %v", err)
	s.log.Debug().Err(err).Msg("Frame not decoded")
}

func (s *Session) stopCamera(reason string) {
	s.gen++
	if !s.streaming {
		return
	}
	s.streaming = false
	if err := s.camera.Stop(); err != nil {
		s.debugf("Error in %s: %v", reason, err)
		s.log.Warn().Err(err).Str("reason", reason).Msg("Failed to stop camera")
		return
	}
	s.log.Info().Str("reason", reason).Msg("Scanner stopped")
}

func (s *Session) setError(code apperr.Code, msg string) {
	s.errCode = code
	s.errMsg = msg
}

func (s *Session) clearError() {
	s.errCode = ""
	s.errMsg = ""
}

func (s *Session) setAlert(kind, title, description string) {
	s.alert = &Alert{
		Type:        kind,
		Title:       title,
		Description: description,
		ExpiresAt:   s.now().Add(alertDuration),
	}
}

func (s *Session) debugf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	s.debugInfo = append(s.debugInfo, line)
	if len(s.debugInfo) > maxLogLines {
		s.debugInfo = s.debugInfo[len(s.debugInfo)-maxLogLines:]
	}
}

func containsDevice(devices []Device, id string) bool {
	if id == "" {
		return false
	}
	for _, d := range devices {
		if d.ID == id {
			return true
		}
	}
	return false
}
