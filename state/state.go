package state

import (
	"fmt"
	"sync"
	"time"
)

// Phase is a named segment of the countdown with its own motion and audio
// behavior.
type Phase int

const (
	Idle Phase = iota
	Waiting
	FinalMinute
	FinalTen
	Celebrating
	Done
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case FinalMinute:
		return "final_minute"
	case FinalTen:
		return "final_ten"
	case Celebrating:
		return "celebrating"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// PhaseFor maps remaining time onto a phase. celebrated reports whether the
// celebration window for the current target has already elapsed.
func PhaseFor(remaining time.Duration, running, celebrated bool) Phase {
	if !running {
		return Idle
	}
	switch {
	case remaining > time.Minute:
		return Waiting
	case remaining > 10*time.Second:
		return FinalMinute
	case remaining > 0:
		return FinalTen
	case !celebrated:
		return Celebrating
	default:
		return Done
	}
}

// Snapshot is an immutable point-in-time copy of the countdown status.
type Snapshot struct {
	Remaining time.Duration
	Phase     Phase
	Running   bool
	MusicURL  string
	Target    time.Time
}

// Formatted renders the remaining time as HH:MM:SS for the web UI.
func (s Snapshot) Formatted() string {
	total := int(s.Remaining.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// Store holds the latest snapshot. The countdown controller is the only
// writer; HTTP handlers and the websocket hub read concurrently. Readers see
// either the previous snapshot in full or the new one in full, never a mix.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Publish(snap Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

func (s *Store) Read() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
