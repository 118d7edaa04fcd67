package record

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"minibot.dev/countdown/media"
)

// Pump pulls frames from the source at the recording cadence and appends
// them to the recorder until ctx is cancelled or the recorder gives up.
// It runs in its own goroutine; a stalled source or aborted recorder never
// disturbs the countdown or the stream viewers.
func Pump(ctx context.Context, src media.Source, rec *Recorder, log zerolog.Logger) {
	log = log.With().Str("component", "record").Logger()
	interval := time.Second / time.Duration(rec.fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := src.Frame(ctx)
			if err != nil {
				// No frame right now; the cadence just skips a slot.
				continue
			}
			switch err := rec.Append(frame); {
			case errors.Is(err, ErrRecorderAborted):
				log.Warn().Msg("recording aborted, pump exiting")
				return
			case errors.Is(err, ErrRecorderClosed):
				return
			}
		}
	}
}
