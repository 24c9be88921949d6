// Package scanner drives a scanning station: camera selection, the decode
// loop and the check-in state machine.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrNotStreaming = errors.New("camera is not streaming")

type Device struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Config is handed to the decoder: frames sampled per second and the side of
// the square decode region centred in the frame, in pixels.
type Config struct {
	FPS     int `json:"fps"`
	BoxSize int `json:"boxSize"`
}

// Camera is a video source with a QR decoder attached. onSuccess receives
// decoded text; onError receives per-frame decode misses.
type Camera interface {
	Devices(ctx context.Context) ([]Device, error)
	Start(deviceID string, cfg Config, onSuccess func(text string), onError func(err error)) error
	Stop() error
}

// RemoteCamera is a Camera whose decoder runs on the station's own hardware.
// The station reports its devices and pushes each decode result as a frame.
type RemoteCamera struct {
	mu        sync.Mutex
	devices   []Device
	active    string
	cfg       Config
	onSuccess func(string)
	onError   func(error)
}

func NewRemoteCamera() *RemoteCamera {
	return &RemoteCamera{}
}

// SetDevices replaces the reported device list.
func (c *RemoteCamera) SetDevices(devices []Device) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.devices = append([]Device(nil), devices...)
}

func (c *RemoteCamera) Devices(_ context.Context) ([]Device, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]Device(nil), c.devices...), nil
}

func (c *RemoteCamera) Start(deviceID string, cfg Config, onSuccess func(string), onError func(error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != "" {
		return fmt.Errorf("camera %s is already streaming", c.active)
	}
	found := false
	for _, d := range c.devices {
		if d.ID == deviceID {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("camera %s not found", deviceID)
	}

	c.active = deviceID
	c.cfg = cfg
	c.onSuccess = onSuccess
	c.onError = onError
	return nil
}

func (c *RemoteCamera) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == "" {
		return ErrNotStreaming
	}
	c.active = ""
	c.onSuccess = nil
	c.onError = nil
	return nil
}

// Streaming reports the active device and its decode config.
func (c *RemoteCamera) Streaming() (deviceID string, cfg Config, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.active, c.cfg, c.active != ""
}

// Deliver hands decoded text to the running session. It returns false when
// the camera is not streaming and the frame was dropped.
func (c *RemoteCamera) Deliver(text string) bool {
	c.mu.Lock()
	fn := c.onSuccess
	c.mu.Unlock()

	if fn == nil {
		return false
	}
	fn(text)
	return true
}

// DeliverError reports a frame the station could not decode.
func (c *RemoteCamera) DeliverError(err error) bool {
	c.mu.Lock()
	fn := c.onError
	c.mu.Unlock()

	if fn == nil {
		return false
	}
	fn(err)
	return true
}
