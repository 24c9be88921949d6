package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/qr-checkin/internal/scanner"
)

// StationHandler exposes the scanning stations. A station's device pushes its
// camera list and decode results here and renders the returned snapshot.
type StationHandler struct {
	hub *scanner.Hub
}

func NewStationHandler(hub *scanner.Hub) *StationHandler {
	return &StationHandler{hub: hub}
}

type StationInput struct {
	Station string `path:"station" pattern:"^[a-zA-Z0-9_-]+$" maxLength:"64" doc:"Station identifier"`
}

type StationOutput struct {
	Body scanner.Snapshot
}

func (h *StationHandler) station(id string) (*scanner.Station, error) {
	st, err := h.hub.Station(id)
	if err != nil {
		return nil, httpError(err)
	}
	return st, nil
}

func snapshot(st *scanner.Station) *StationOutput {
	return &StationOutput{Body: st.Session.Snapshot()}
}

func (h *StationHandler) HandleGet(ctx context.Context, input *StationInput) (*StationOutput, error) {
	st, err := h.station(input.Station)
	if err != nil {
		return nil, err
	}
	return snapshot(st), nil
}

type DevicesInput struct {
	StationInput
	Body struct {
		Devices []scanner.Device `json:"devices" doc:"Cameras available on the station, in enumeration order"`
	}
}

func (h *StationHandler) HandleDevices(ctx context.Context, input *DevicesInput) (*StationOutput, error) {
	st, err := h.station(input.Station)
	if err != nil {
		return nil, err
	}

	st.Camera.SetDevices(input.Body.Devices)
	if err := st.Session.RefreshDevices(ctx); err != nil {
		return nil, httpError(err)
	}
	return snapshot(st), nil
}

type SelectDeviceInput struct {
	StationInput
	Body struct {
		DeviceID string `json:"deviceId" minLength:"1"`
	}
}

func (h *StationHandler) HandleSelectDevice(ctx context.Context, input *SelectDeviceInput) (*StationOutput, error) {
	st, err := h.station(input.Station)
	if err != nil {
		return nil, err
	}
	if err := st.Session.SelectDevice(input.Body.DeviceID); err != nil {
		return nil, httpError(err)
	}
	return snapshot(st), nil
}

func (h *StationHandler) HandleStart(ctx context.Context, input *StationInput) (*StationOutput, error) {
	st, err := h.station(input.Station)
	if err != nil {
		return nil, err
	}
	if err := st.Session.Start(); err != nil {
		return nil, httpError(err)
	}
	return snapshot(st), nil
}

func (h *StationHandler) HandleReset(ctx context.Context, input *StationInput) (*StationOutput, error) {
	st, err := h.station(input.Station)
	if err != nil {
		return nil, err
	}
	st.Session.Reset()
	return snapshot(st), nil
}

type FrameInput struct {
	StationInput
	Body struct {
		Text  string `json:"text,omitempty" doc:"Decoded QR text"`
		Error string `json:"error,omitempty" doc:"Decoder message for a frame without a code"`
	}
}

type FrameOutput struct {
	Body struct {
		Accepted bool             `json:"accepted" doc:"False when the station was not scanning"`
		Snapshot scanner.Snapshot `json:"snapshot"`
	}
}

func (h *StationHandler) HandleFrame(ctx context.Context, input *FrameInput) (*FrameOutput, error) {
	st, err := h.station(input.Station)
	if err != nil {
		return nil, err
	}

	out := &FrameOutput{}
	switch {
	case input.Body.Text != "":
		out.Body.Accepted = st.Camera.Deliver(input.Body.Text)
	case input.Body.Error != "":
		out.Body.Accepted = st.Camera.DeliverError(errors.New(input.Body.Error))
	default:
		return nil, huma.Error422UnprocessableEntity("Either text or error is required")
	}
	out.Body.Snapshot = st.Session.Snapshot()
	return out, nil
}

type EvictInput struct {
	StationInput
	OlderThan string `query:"olderThan" doc:"Duration such as 6h; defaults to the cool-down window"`
}

type EvictOutput struct {
	Body struct {
		Evicted int `json:"evicted"`
	}
}

func (h *StationHandler) HandleEvict(ctx context.Context, input *EvictInput) (*EvictOutput, error) {
	st, err := h.station(input.Station)
	if err != nil {
		return nil, err
	}

	age := st.Validator.Window()
	if input.OlderThan != "" {
		age, err = time.ParseDuration(input.OlderThan)
		if err != nil || age < 0 {
			return nil, huma.Error422UnprocessableEntity("Invalid olderThan duration")
		}
	}

	n, err := st.Validator.EvictOlderThan(ctx, age)
	if err != nil {
		return nil, huma.Error503ServiceUnavailable("Failed to evict scan history", err)
	}
	out := &EvictOutput{}
	out.Body.Evicted = n
	return out, nil
}
