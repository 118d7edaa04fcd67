package countdown

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"minibot.dev/countdown/state"
)

const (
	// MaxDuration bounds countdowns started through the control API.
	MaxDuration = 3600 * time.Second
	// DefaultDuration is used when a start request carries no duration.
	DefaultDuration = 30 * time.Second
	// DefaultCelebration matches the original one minute of dancing.
	DefaultCelebration = 60 * time.Second

	defaultTick  = 200 * time.Millisecond
	swayInterval = 5 * time.Second
)

var (
	ErrInvalidDuration = errors.New("countdown: duration must be between 1s and 3600s")
	ErrTargetInPast    = errors.New("countdown: target time is in the past")
	ErrEmptyMusicURL   = errors.New("countdown: music url must not be empty")
)

// Actuator issues named motion commands to the robot. Implementations are
// expected to return quickly; motion durations are hints for the daemon.
type Actuator interface {
	HeadPose(pitch, yaw, roll float64, d time.Duration) error
	Antennas(left, right float64, d time.Duration) error
}

// Announcer covers the audio side: spoken countdown numbers and celebration
// music.
type Announcer interface {
	SayNumber(n int) error
	PlayMusic(url string) error
	StopAudio() error
}

// Options configure a controller for the lifetime of the process.
type Options struct {
	// Once stops after the first celebration instead of rearming.
	Once bool
	// CelebrationTime is how long the dance at zero lasts.
	CelebrationTime time.Duration
	// SpeakIntervals enables spoken announcements at the 10 s boundaries of
	// the final minute.
	SpeakIntervals bool
	// Tick overrides the loop period. Zero means the default 200 ms.
	Tick time.Duration
}

// Controller owns the countdown session and is the sole writer of the
// snapshot store. All cue side effects are edge triggered: each boundary
// fires at most once per crossing no matter how often the loop ticks.
type Controller struct {
	store     *state.Store
	actuator  Actuator
	announcer Announcer
	opts      Options
	log       zerolog.Logger
	now       func() time.Time

	mu             sync.Mutex
	running        bool
	target         time.Time
	sessionLen     time.Duration // zero when started from an absolute target
	frozen         time.Duration
	musicURL       string
	speakIntervals bool
	latched        bool
	celebrationEnd time.Time
	lastPhase      state.Phase
	lastSecond     int
	lastSpoken     int
	lastInterval   int
	lastSway       time.Time
	swayFlip       bool
	beats          int
	lastBeatAt     time.Time
}

func New(store *state.Store, actuator Actuator, announcer Announcer, opts Options, log zerolog.Logger) *Controller {
	if opts.CelebrationTime <= 0 {
		opts.CelebrationTime = DefaultCelebration
	}
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	return &Controller{
		store:          store,
		actuator:       actuator,
		announcer:      announcer,
		opts:           opts,
		log:            log.With().Str("component", "countdown").Logger(),
		now:            time.Now,
		speakIntervals: opts.SpeakIntervals,
		lastSpoken:     11,
		lastInterval:   70,
		lastSecond:     -1,
	}
}

// Start begins a session counting down for d from now.
func (c *Controller) Start(d time.Duration) error {
	if d <= 0 || d > MaxDuration {
		return ErrInvalidDuration
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.sessionLen = d
	c.beginSessionLocked(now.Add(d), now)
	return nil
}

// StartAt begins a session counting down to an absolute point in time.
func (c *Controller) StartAt(target time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if !target.After(now) {
		return ErrTargetInPast
	}
	c.sessionLen = 0
	c.beginSessionLocked(target, now)
	return nil
}

func (c *Controller) beginSessionLocked(target, now time.Time) {
	c.target = target
	c.running = true
	c.frozen = 0
	c.rearmLocked()
	initial := remainingUntil(target, now)
	c.armEdgesLocked(initial)
	c.log.Info().Time("target", target).Msg("countdown started")
	c.publishLocked(initial, state.PhaseFor(initial, true, false))
}

// armEdgesLocked caps the edge trackers at the session's initial remaining
// time, so a short countdown does not fire boundaries it never crossed.
func (c *Controller) armEdgesLocked(initial time.Duration) {
	secs := int(math.Ceil(initial.Seconds()))
	if secs+1 < c.lastSpoken {
		c.lastSpoken = secs + 1
	}
	if secs+1 < c.lastInterval {
		c.lastInterval = secs + 1
	}
}

// rearmLocked clears the celebration latch and all edge trackers.
func (c *Controller) rearmLocked() {
	c.latched = false
	c.celebrationEnd = time.Time{}
	c.lastPhase = state.Idle
	c.lastSecond = -1
	c.lastSpoken = 11
	c.lastInterval = 70
	c.lastSway = time.Time{}
	c.beats = 0
	c.lastBeatAt = time.Time{}
}

// Stop pauses the session, freezing the remaining time. Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.frozen = remainingUntil(c.target, c.now())
	c.running = false
	c.lastPhase = state.Idle
	c.publishLocked(c.frozen, state.Idle)
	c.mu.Unlock()

	c.log.Info().Dur("frozen", c.frozen).Msg("countdown stopped")
	c.quiet()
	c.resetPose()
}

// Reset clears the session back to idle, discarding target and remaining
// time. Idempotent.
func (c *Controller) Reset() {
	c.mu.Lock()
	wasIdle := !c.running && c.target.IsZero()
	c.running = false
	c.target = time.Time{}
	c.sessionLen = 0
	c.frozen = 0
	c.rearmLocked()
	c.publishLocked(0, state.Idle)
	c.mu.Unlock()

	if !wasIdle {
		c.log.Info().Msg("countdown reset")
		c.quiet()
		c.resetPose()
	}
}

// SetMusicURL stores the celebration music URL. It has no effect on the
// current phase; the URL is consumed on the next celebration entry.
func (c *Controller) SetMusicURL(url string) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return ErrEmptyMusicURL
	}
	c.mu.Lock()
	c.musicURL = url
	c.publishLocked(c.currentRemainingLocked(), c.lastPhase)
	c.mu.Unlock()
	return nil
}

func (c *Controller) SetSpeakIntervals(on bool) {
	c.mu.Lock()
	c.speakIntervals = on
	c.mu.Unlock()
}

// Run drives the tick loop until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.opts.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.quiet()
			c.resetPose()
			return
		case t := <-ticker.C:
			c.step(t)
		}
	}
}

// step advances the state machine to the given instant. Split out from Run
// so tests can drive it with a synthetic clock at arbitrary tick rates.
func (c *Controller) step(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	remaining := remainingUntil(c.target, now)
	celebrated := c.latched && !now.Before(c.celebrationEnd)
	phase := state.PhaseFor(remaining, true, celebrated)

	if phase != c.lastPhase {
		c.enterPhaseLocked(phase, now)
	}
	switch phase {
	case state.Waiting:
		c.tickWaitingLocked(now)
	case state.FinalMinute:
		c.tickFinalMinuteLocked(remaining)
	case state.FinalTen:
		c.tickFinalTenLocked(remaining)
	case state.Celebrating:
		c.tickCelebratingLocked(now)
	}
	c.lastPhase = phase
	if c.running {
		c.publishLocked(remaining, phase)
	}
}

func (c *Controller) enterPhaseLocked(phase state.Phase, now time.Time) {
	c.log.Debug().Stringer("phase", phase).Msg("phase entered")
	switch phase {
	case state.Waiting:
		c.resetPose()
	case state.Celebrating:
		c.latched = true
		c.celebrationEnd = now.Add(c.opts.CelebrationTime)
		c.beats = 0
		c.lastBeatAt = now
		if c.musicURL != "" {
			if err := c.announcer.PlayMusic(c.musicURL); err != nil {
				c.log.Warn().Err(err).Str("url", c.musicURL).Msg("music playback failed")
			}
		}
		c.celebrationBurst()
	case state.Done:
		c.finishSessionLocked(now)
	}
}

func (c *Controller) finishSessionLocked(now time.Time) {
	c.quiet()
	c.resetPose()
	if c.opts.Once {
		c.running = false
		c.frozen = 0
		c.publishLocked(0, state.Done)
		c.log.Info().Msg("session complete")
		return
	}
	// Loop mode: rearm with a freshly computed target.
	if c.sessionLen > 0 {
		c.target = now.Add(c.sessionLen)
	} else {
		c.target = NextMidnight(now)
	}
	c.rearmLocked()
	c.armEdgesLocked(remainingUntil(c.target, now))
	c.log.Info().Time("target", c.target).Msg("rearmed for next session")
}

func (c *Controller) tickWaitingLocked(now time.Time) {
	if !c.lastSway.IsZero() && now.Sub(c.lastSway) < swayInterval {
		return
	}
	c.lastSway = now
	c.swayFlip = !c.swayFlip
	c.move("head", c.actuator.HeadPose(-30, 0, 0, 300*time.Millisecond))
	if c.swayFlip {
		c.move("antennas", c.actuator.Antennas(-0.2, 0.2, 500*time.Millisecond))
	} else {
		c.move("antennas", c.actuator.Antennas(0.2, -0.2, 500*time.Millisecond))
	}
}

func (c *Controller) tickFinalMinuteLocked(remaining time.Duration) {
	sec := int(remaining.Seconds())
	if sec == c.lastSecond {
		return
	}
	c.lastSecond = sec

	// Antennas rise and the head tilts up as the minute runs out.
	progress := 1 - float64(sec)/60
	antenna := -0.6 + progress*1.2
	pitch := -30 - progress*20
	c.move("antennas", c.actuator.Antennas(antenna, antenna, 400*time.Millisecond))
	c.move("head", c.actuator.HeadPose(pitch, 0, 0, 400*time.Millisecond))

	// 10 s boundaries fire once each, even when a slow tick skips past one.
	for _, boundary := range []int{60, 50, 40, 30, 20} {
		if sec <= boundary && boundary < c.lastInterval {
			c.lastInterval = boundary
			c.move("antennas", c.actuator.Antennas(0.8, -0.8, 250*time.Millisecond))
			c.move("antennas", c.actuator.Antennas(-0.8, 0.8, 250*time.Millisecond))
			c.move("antennas", c.actuator.Antennas(antenna, antenna, 250*time.Millisecond))
			if c.speakIntervals {
				c.say(boundary)
			}
		}
	}
}

func (c *Controller) tickFinalTenLocked(remaining time.Duration) {
	// The number to shout is the boundary most recently crossed: 10 while
	// remaining is in (9,10], 9 in (8,9], and so on.
	sec := int(math.Ceil(remaining.Seconds()))
	if sec > 10 {
		sec = 10
	}
	if sec < 1 || sec >= c.lastSpoken {
		return
	}
	// Speak every crossed boundary exactly once, catching up if a tick
	// arrived late.
	for n := c.lastSpoken - 1; n >= sec; n-- {
		c.say(n)
	}
	c.lastSpoken = sec
	if sec%2 == 0 {
		c.move("antennas", c.actuator.Antennas(0.7, -0.7, 200*time.Millisecond))
	} else {
		c.move("antennas", c.actuator.Antennas(-0.7, 0.7, 200*time.Millisecond))
	}
}

func (c *Controller) tickCelebratingLocked(now time.Time) {
	if now.Sub(c.lastBeatAt) < time.Second {
		return
	}
	c.lastBeatAt = now
	c.beats++
	switch {
	case c.beats%5 == 0:
		c.move("antennas", c.actuator.Antennas(0.6, 0.6, 500*time.Millisecond))
		c.move("head", c.actuator.HeadPose(-40, 0, 0, 500*time.Millisecond))
	case c.beats%2 == 0:
		c.move("antennas", c.actuator.Antennas(0.5, -0.2, 400*time.Millisecond))
		c.move("head", c.actuator.HeadPose(-30, -15, 10, 400*time.Millisecond))
	default:
		c.move("antennas", c.actuator.Antennas(-0.2, 0.5, 400*time.Millisecond))
		c.move("head", c.actuator.HeadPose(-30, 15, -10, 400*time.Millisecond))
	}
}

// celebrationBurst is the entry choreography: three spins and a victory pose.
func (c *Controller) celebrationBurst() {
	for i := 0; i < 3; i++ {
		c.move("antennas", c.actuator.Antennas(0.6, -0.4, 400*time.Millisecond))
		c.move("head", c.actuator.HeadPose(-35, -20, 15, 400*time.Millisecond))
		c.move("antennas", c.actuator.Antennas(-0.4, 0.6, 400*time.Millisecond))
		c.move("head", c.actuator.HeadPose(-35, 20, -15, 400*time.Millisecond))
	}
	c.move("antennas", c.actuator.Antennas(0.6, 0.6, 200*time.Millisecond))
	c.move("head", c.actuator.HeadPose(-45, 0, 0, 300*time.Millisecond))
}

func (c *Controller) resetPose() {
	c.move("head", c.actuator.HeadPose(-30, 0, 0, 800*time.Millisecond))
	c.move("antennas", c.actuator.Antennas(0, 0, 800*time.Millisecond))
}

func (c *Controller) quiet() {
	if err := c.announcer.StopAudio(); err != nil {
		c.log.Warn().Err(err).Msg("stop audio failed")
	}
}

func (c *Controller) say(n int) {
	if err := c.announcer.SayNumber(n); err != nil {
		c.log.Warn().Err(err).Int("number", n).Msg("announcement failed")
	}
}

// move logs actuator failures without aborting the loop.
func (c *Controller) move(what string, err error) {
	if err != nil {
		c.log.Warn().Err(err).Str("motion", what).Msg("actuator command failed")
	}
}

func (c *Controller) currentRemainingLocked() time.Duration {
	if c.running {
		return remainingUntil(c.target, c.now())
	}
	return c.frozen
}

func (c *Controller) publishLocked(remaining time.Duration, phase state.Phase) {
	c.store.Publish(state.Snapshot{
		Remaining: remaining,
		Phase:     phase,
		Running:   c.running,
		MusicURL:  c.musicURL,
		Target:    c.target,
	})
}

func remainingUntil(target, now time.Time) time.Duration {
	remaining := target.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// NextMidnight returns the start of the next day in local time, the default
// countdown target.
func NextMidnight(now time.Time) time.Time {
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, now.Location())
}
