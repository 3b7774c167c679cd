package audio

import (
	"context"
	"log/slog"
)

// Source starts captures from the configured input with fallback policy.
type Source struct {
	Input    string
	Fallback string
	Logger   *slog.Logger
}

// Check reports whether a usable input device can be selected.
func (s Source) Check(ctx context.Context) error {
	_, err := SelectDevice(ctx, s.Input, s.Fallback)
	return err
}

// Start selects a device and starts capturing from it.
func (s Source) Start(ctx context.Context) (*Capture, error) {
	selection, err := SelectDevice(ctx, s.Input, s.Fallback)
	if err != nil {
		return nil, err
	}
	if selection.Warning != "" && s.Logger != nil {
		s.Logger.Warn(selection.Warning, "device", selection.Device.ID)
	}
	capture, err := StartCapture(ctx, selection.Device)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Debug("audio capture started", "device", selection.Device.ID, "description", selection.Device.Description)
	}
	return capture, nil
}
