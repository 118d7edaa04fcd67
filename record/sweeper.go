package record

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// Sweeper finalizes spool directories left behind by an interrupted run.
// It runs once at start-up, before a new recorder opens.
type Sweeper struct {
	root    string
	log     zerolog.Logger
	convert convertFunc
}

func NewSweeper(root string, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		root:    root,
		log:     log.With().Str("component", "record").Logger(),
		convert: ffmpegConvert,
	}
}

// Sweep converts every orphaned spool under the root and returns how many
// videos were finalized. Conversion failures are logged and the spool kept
// for the next attempt.
func (s *Sweeper) Sweep() int {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		s.log.Warn().Err(err).Str("root", s.root).Msg("sweep skipped")
		return 0
	}
	finalized := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasSuffix(entry.Name(), spoolSuffix) {
			continue
		}
		spool := filepath.Join(s.root, entry.Name())
		outPath := strings.TrimSuffix(spool, spoolSuffix)
		frames, err := filepath.Glob(filepath.Join(spool, "frame*.jpg"))
		if err != nil || len(frames) == 0 {
			os.RemoveAll(spool)
			continue
		}
		s.log.Info().Str("spool", spool).Int("frames", len(frames)).Msg("finalizing orphaned recording")
		if err := s.convert(spool, outPath, DefaultFPS); err != nil {
			s.log.Warn().Err(err).Str("spool", spool).Msg("orphan finalize failed")
			continue
		}
		os.RemoveAll(spool)
		finalized++
	}
	return finalized
}
