package scanner

import (
	"sync"

	"github.com/gdg-garage/qr-checkin/internal/checkin"
	"github.com/gdg-garage/qr-checkin/internal/metrics"
	"github.com/rs/zerolog"
)

// Station bundles what one scanning device owns: its camera feed, its
// session and its validator with the station-local cool-down cache.
type Station struct {
	ID        string
	Camera    *RemoteCamera
	Session   *Session
	Validator *checkin.Validator
}

// Hub hands out stations by id, creating them on first use.
type Hub struct {
	mu           sync.Mutex
	stations     map[string]*Station
	newValidator func(station string) *checkin.Validator
	cfg          Config
	metrics      *metrics.Metrics
	log          zerolog.Logger
	closed       bool
}

func NewHub(newValidator func(station string) *checkin.Validator, cfg Config, m *metrics.Metrics, log zerolog.Logger) *Hub {
	return &Hub{
		stations:     make(map[string]*Station),
		newValidator: newValidator,
		cfg:          cfg,
		metrics:      m,
		log:          log,
	}
}

func (h *Hub) Station(id string) (*Station, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}
	if st, ok := h.stations[id]; ok {
		return st, nil
	}

	v := h.newValidator(id)
	cam := NewRemoteCamera()
	st := &Station{
		ID:        id,
		Camera:    cam,
		Session:   NewSession(id, cam, v, h.cfg, h.metrics, h.log),
		Validator: v,
	}
	h.stations[id] = st
	h.log.Info().Str("station", id).Msg("Station registered")
	return st, nil
}

// Close stops every station's camera.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, st := range h.stations {
		st.Session.Close()
	}
}
