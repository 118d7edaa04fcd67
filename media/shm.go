package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultShmDir is where the daemon maps its frame segment.
const DefaultShmDir = "/dev/shm"

// frame layout in the segment: 1 flag byte, 4 bytes little-endian payload
// length, then the JPEG payload.
const headerSize = 5

// ShmSource caches the newest frame written to a shared-memory file by the
// camera daemon. A watcher goroutine keeps the cache fresh; Frame is a
// cheap concurrent read.
type ShmSource struct {
	shmPath string
	watcher *fsnotify.Watcher
	log     zerolog.Logger

	mu     sync.RWMutex
	latest []byte
}

func NewShmSource(dir, name string, log zerolog.Logger) (*ShmSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("media: watch %s: %w", dir, err)
	}
	return &ShmSource{
		shmPath: filepath.Join(dir, name),
		watcher: watcher,
		log:     log.With().Str("component", "media").Logger(),
	}, nil
}

// Frame returns the newest cached frame. The returned slice is never
// mutated afterwards; writers always swap in a fresh buffer.
func (s *ShmSource) Frame(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrSourceUnavailable
	}
	return s.latest, nil
}

// Run watches the shared-memory file until ctx is cancelled.
func (s *ShmSource) Run(ctx context.Context) {
	defer s.watcher.Close()
	s.log.Info().Str("path", s.shmPath).Msg("watching shared memory")

	var lastFrame []byte
	windowStart := time.Now()
	frames := 0
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.shmPath || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			frame, err := s.readFrame()
			if err != nil {
				s.log.Warn().Err(err).Msg("bad frame in shared memory")
				continue
			}
			// The same write can surface as two events; skip duplicates.
			if bytes.Equal(frame, lastFrame) {
				continue
			}
			lastFrame = frame
			frames++
			if elapsed := time.Since(windowStart); elapsed > time.Second {
				s.log.Debug().Float64("fps", float64(frames)/elapsed.Seconds()).Msg("camera frame rate")
				frames = 0
				windowStart = time.Now()
			}
			s.mu.Lock()
			s.latest = frame
			s.mu.Unlock()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (s *ShmSource) readFrame() ([]byte, error) {
	data, err := os.ReadFile(s.shmPath)
	if err != nil {
		return nil, err
	}
	return parseFrame(data)
}

func parseFrame(data []byte) ([]byte, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("frame too short: %d bytes", len(data))
	}
	length := binary.LittleEndian.Uint32(data[1:headerSize])
	if int(length) > len(data)-headerSize {
		return nil, fmt.Errorf("frame length %d exceeds segment size %d", length, len(data))
	}
	frame := make([]byte, length)
	copy(frame, data[headerSize:headerSize+length])
	return frame, nil
}
