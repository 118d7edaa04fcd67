// Package media supplies camera frames as encoded JPEG bytes. The live
// implementation reads the shared-memory segment the robot daemon publishes
// frames into; a placeholder source covers headless runs.
package media

import (
	"context"
	"errors"
)

// ErrSourceUnavailable reports that no frame can be served right now.
// Viewers surface it as a stalled or placeholder image; it is never fatal.
var ErrSourceUnavailable = errors.New("media: no frame available")

// Source yields the current camera frame. Each consumer pulls
// independently; a slow consumer only affects itself.
type Source interface {
	Frame(ctx context.Context) ([]byte, error)
}
