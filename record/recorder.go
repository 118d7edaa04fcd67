// Package record persists a countdown session as a video file. Frames are
// spooled to disk as individual JPEGs while the session runs and muxed into
// an H.264 MP4 by ffmpeg when the recorder closes. The spool survives an
// interrupt: every frame appended before the crash is still on disk and the
// sweeper finalizes it on the next start.
package record

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/rs/zerolog"
)

const (
	// DefaultFPS is the fixed recording frame rate.
	DefaultFPS = 30
	// spoolSuffix marks a session's frame directory, next to the output file.
	spoolSuffix = ".frames"

	defaultMaxFailures = 30
)

var (
	ErrRecorderClosed  = errors.New("record: recorder is closed")
	ErrRecorderAborted = errors.New("record: too many consecutive append failures")
)

type convertFunc func(spoolDir, outPath string, fps int) error

// Recorder owns one recording session. Append and Close are safe for
// concurrent use; Close finalizes exactly once.
type Recorder struct {
	outPath string
	spool   string
	fps     int
	log     zerolog.Logger
	convert convertFunc

	mu          sync.Mutex
	frames      int
	failures    int
	maxFailures int
	closed      bool
	aborted     bool
}

// Open creates the spool directory for a new session. An unwritable path is
// a synchronous failure; the caller decides whether that aborts start-up.
func Open(outPath string, fps int, log zerolog.Logger) (*Recorder, error) {
	if fps <= 0 {
		fps = DefaultFPS
	}
	spool := outPath + spoolSuffix
	if err := os.MkdirAll(spool, 0o755); err != nil {
		return nil, fmt.Errorf("record: create spool %s: %w", spool, err)
	}
	log = log.With().Str("component", "record").Logger()
	log.Info().Str("output", outPath).Int("fps", fps).Msg("recording session opened")
	return &Recorder{
		outPath:     outPath,
		spool:       spool,
		fps:         fps,
		log:         log,
		convert:     ffmpegConvert,
		maxFailures: defaultMaxFailures,
	}, nil
}

// Append writes one frame to the spool. A single failure is logged and the
// frame skipped; the threshold of consecutive failures aborts the recording
// without touching the countdown.
func (r *Recorder) Append(frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrRecorderClosed
	}
	if r.aborted {
		return ErrRecorderAborted
	}
	name := filepath.Join(r.spool, fmt.Sprintf("frame%06d.jpg", r.frames))
	if err := os.WriteFile(name, frame, 0o644); err != nil {
		r.failures++
		r.log.Warn().Err(err).Int("consecutive", r.failures).Msg("frame append failed, skipping")
		if r.failures >= r.maxFailures {
			r.aborted = true
			r.log.Error().Msg("recording aborted")
			return ErrRecorderAborted
		}
		return nil
	}
	r.failures = 0
	r.frames++
	return nil
}

// FrameCount reports how many frames have been spooled so far.
func (r *Recorder) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close finalizes the output file. Safe to call more than once; only the
// first call does the work. The spool is kept when conversion fails so no
// delivered frame is ever lost.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if r.frames == 0 {
		os.RemoveAll(r.spool)
		r.log.Info().Msg("no frames recorded, nothing to finalize")
		return nil
	}
	if err := r.convert(r.spool, r.outPath, r.fps); err != nil {
		r.log.Error().Err(err).Str("spool", r.spool).Msg("finalize failed, spool kept")
		return fmt.Errorf("record: finalize %s: %w", r.outPath, err)
	}
	os.RemoveAll(r.spool)
	r.log.Info().Str("output", r.outPath).Int("frames", r.frames).Msg("video saved")
	return nil
}

func ffmpegConvert(spoolDir, outPath string, fps int) error {
	return runFFmpeg(
		"-y",
		"-framerate", strconv.Itoa(fps),
		"-i", filepath.Join(spoolDir, "frame%06d.jpg"),
		"-pix_fmt", "yuv420p",
		"-c:v", "libx264",
		"-profile:v", "baseline",
		"-level", "3.1",
		"-bf", "0",
		outPath,
	)
}
