package countdown

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"minibot.dev/countdown/state"
)

type fakeActuator struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeActuator) HeadPose(pitch, yaw, roll float64, d time.Duration) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail {
		return errors.New("daemon unreachable")
	}
	return nil
}

func (f *fakeActuator) Antennas(left, right float64, d time.Duration) error {
	return f.HeadPose(0, 0, 0, d)
}

type fakeAnnouncer struct {
	mu    sync.Mutex
	said  []int
	music []string
	stops int
}

func (f *fakeAnnouncer) SayNumber(n int) error {
	f.mu.Lock()
	f.said = append(f.said, n)
	f.mu.Unlock()
	return nil
}

func (f *fakeAnnouncer) PlayMusic(url string) error {
	f.mu.Lock()
	f.music = append(f.music, url)
	f.mu.Unlock()
	return nil
}

func (f *fakeAnnouncer) StopAudio() error {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	return nil
}

type fixture struct {
	ctrl      *Controller
	store     *state.Store
	actuator  *fakeActuator
	announcer *fakeAnnouncer
	now       time.Time
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		store:     state.NewStore(),
		actuator:  &fakeActuator{},
		announcer: &fakeAnnouncer{},
		now:       time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC),
	}
	f.ctrl = New(f.store, f.actuator, f.announcer, opts, zerolog.Nop())
	f.ctrl.now = func() time.Time { return f.now }
	return f
}

// run advances the synthetic clock by tick and steps the controller, for the
// given total duration.
func (f *fixture) run(total, tick time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += tick {
		f.now = f.now.Add(tick)
		f.ctrl.step(f.now)
	}
}

func TestStartValidation(t *testing.T) {
	f := newFixture(t, Options{})
	for _, d := range []time.Duration{0, -time.Second, MaxDuration + time.Second} {
		if err := f.ctrl.Start(d); !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("Start(%v) = %v, want ErrInvalidDuration", d, err)
		}
	}
	if err := f.ctrl.StartAt(f.now.Add(-time.Minute)); !errors.Is(err, ErrTargetInPast) {
		t.Errorf("StartAt(past) = %v, want ErrTargetInPast", err)
	}
	if err := f.ctrl.Start(30 * time.Second); err != nil {
		t.Fatalf("Start(30s) failed: %v", err)
	}
}

func TestFinalTenAnnouncedOncePerBoundary(t *testing.T) {
	for _, tick := range []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 900 * time.Millisecond} {
		t.Run(tick.String(), func(t *testing.T) {
			f := newFixture(t, Options{Once: true, CelebrationTime: 2 * time.Second})
			if err := f.ctrl.Start(12 * time.Second); err != nil {
				t.Fatal(err)
			}
			f.run(16*time.Second, tick)

			want := []int{10, 9, 8, 7, 6, 5, 4, 3, 2, 1}
			if len(f.announcer.said) != len(want) {
				t.Fatalf("said %v, want %v", f.announcer.said, want)
			}
			for i, n := range want {
				if f.announcer.said[i] != n {
					t.Fatalf("said %v, want %v", f.announcer.said, want)
				}
			}
		})
	}
}

func TestShortSessionSkipsUncrossedBoundaries(t *testing.T) {
	f := newFixture(t, Options{Once: true, CelebrationTime: time.Second, SpeakIntervals: true})
	if err := f.ctrl.Start(5 * time.Second); err != nil {
		t.Fatal(err)
	}
	f.run(7*time.Second, 200*time.Millisecond)

	want := []int{5, 4, 3, 2, 1}
	if len(f.announcer.said) != len(want) {
		t.Fatalf("said %v, want %v", f.announcer.said, want)
	}
	for i, n := range want {
		if f.announcer.said[i] != n {
			t.Fatalf("said %v, want %v", f.announcer.said, want)
		}
	}
}

func TestSpeakIntervalsFireOncePerTensBoundary(t *testing.T) {
	f := newFixture(t, Options{Once: true, CelebrationTime: time.Second, SpeakIntervals: true})
	if err := f.ctrl.Start(65 * time.Second); err != nil {
		t.Fatal(err)
	}
	f.run(54*time.Second, 250*time.Millisecond) // stop before the final ten

	want := []int{60, 50, 40, 30, 20}
	if len(f.announcer.said) != len(want) {
		t.Fatalf("said %v, want %v", f.announcer.said, want)
	}
	for i, n := range want {
		if f.announcer.said[i] != n {
			t.Fatalf("said %v, want %v", f.announcer.said, want)
		}
	}
}

func TestStopFreezesRemaining(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.ctrl.Start(30 * time.Second); err != nil {
		t.Fatal(err)
	}
	f.run(10*time.Second, time.Second)
	f.ctrl.Stop()

	frozen := f.store.Read()
	if frozen.Running {
		t.Error("snapshot still running after Stop")
	}
	if frozen.Remaining != 20*time.Second {
		t.Errorf("frozen remaining = %v, want 20s", frozen.Remaining)
	}

	// Ticks while stopped must not change the snapshot.
	f.run(5*time.Second, time.Second)
	if got := f.store.Read().Remaining; got != frozen.Remaining {
		t.Errorf("remaining drifted to %v while stopped", got)
	}

	// Stop is idempotent.
	f.ctrl.Stop()
	if got := f.store.Read().Remaining; got != frozen.Remaining {
		t.Errorf("second Stop changed remaining to %v", got)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.ctrl.Start(30 * time.Second); err != nil {
		t.Fatal(err)
	}
	f.run(3*time.Second, time.Second)

	f.ctrl.Reset()
	first := f.store.Read()
	f.ctrl.Reset()
	second := f.store.Read()

	if first != second {
		t.Errorf("reset snapshots differ: %+v vs %+v", first, second)
	}
	if first.Phase != state.Idle || first.Running || first.Remaining != 0 {
		t.Errorf("reset snapshot not idle: %+v", first)
	}
}

func TestCelebrationLatchesOncePerTarget(t *testing.T) {
	f := newFixture(t, Options{Once: true, CelebrationTime: 3 * time.Second})
	if err := f.ctrl.SetMusicURL("https://example.com/song"); err != nil {
		t.Fatal(err)
	}
	if err := f.ctrl.Start(5 * time.Second); err != nil {
		t.Fatal(err)
	}
	f.run(20*time.Second, 250*time.Millisecond)

	if len(f.announcer.music) != 1 {
		t.Errorf("music played %d times, want exactly once", len(f.announcer.music))
	}
	snap := f.store.Read()
	if snap.Phase != state.Done || snap.Running {
		t.Errorf("expected Done and stopped after once session, got %+v", snap)
	}
}

func TestOnceSessionPhaseSequence(t *testing.T) {
	f := newFixture(t, Options{Once: true, CelebrationTime: 2 * time.Second})
	if err := f.ctrl.Start(15 * time.Second); err != nil {
		t.Fatal(err)
	}

	var phases []state.Phase
	last := state.Phase(-1)
	for i := 0; i < 100; i++ {
		f.now = f.now.Add(250 * time.Millisecond)
		f.ctrl.step(f.now)
		snap := f.store.Read()
		if snap.Phase != last {
			phases = append(phases, snap.Phase)
			last = snap.Phase
		}
	}

	want := []state.Phase{state.FinalMinute, state.FinalTen, state.Celebrating, state.Done}
	if len(phases) != len(want) {
		t.Fatalf("phase sequence %v, want %v", phases, want)
	}
	for i := range want {
		if phases[i] != want[i] {
			t.Fatalf("phase sequence %v, want %v", phases, want)
		}
	}
}

func TestLoopModeRearmsWithFreshTarget(t *testing.T) {
	f := newFixture(t, Options{CelebrationTime: 2 * time.Second})
	f.ctrl.SetSpeakIntervals(false)
	if err := f.ctrl.Start(5 * time.Second); err != nil {
		t.Fatal(err)
	}
	f.run(8*time.Second, 250*time.Millisecond) // through celebration and rearm

	snap := f.store.Read()
	if !snap.Running {
		t.Fatal("loop mode stopped after celebration")
	}
	if !snap.Target.After(f.now) {
		t.Errorf("expected fresh future target, got %v (now %v)", snap.Target, f.now)
	}

	// The rearmed session counts down and celebrates again.
	f.run(8*time.Second, 250*time.Millisecond)
	f.announcer.mu.Lock()
	defer f.announcer.mu.Unlock()
	ones := 0
	for _, n := range f.announcer.said {
		if n == 1 {
			ones++
		}
	}
	if ones != 2 {
		t.Errorf("expected two full countdowns, said %v", f.announcer.said)
	}
}

func TestActuatorFailuresDoNotAbortLoop(t *testing.T) {
	f := newFixture(t, Options{Once: true, CelebrationTime: time.Second})
	f.actuator.fail = true
	if err := f.ctrl.Start(12 * time.Second); err != nil {
		t.Fatal(err)
	}
	f.run(15*time.Second, 250*time.Millisecond)

	if len(f.announcer.said) != 10 {
		t.Errorf("countdown interrupted by actuator failures: said %v", f.announcer.said)
	}
	if f.store.Read().Phase != state.Done {
		t.Errorf("session did not finish, phase %v", f.store.Read().Phase)
	}
}

func TestSetMusicURLAfterStopKeepsIdlePhase(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.ctrl.Start(8 * time.Second); err != nil {
		t.Fatal(err)
	}
	f.run(3*time.Second, 250*time.Millisecond) // well into the final ten
	f.ctrl.Stop()

	if err := f.ctrl.SetMusicURL("https://example.com/song"); err != nil {
		t.Fatal(err)
	}
	snap := f.store.Read()
	if snap.Phase != state.Idle || snap.Running {
		t.Errorf("after stop snapshot = %+v, want idle and not running", snap)
	}
	if snap.Remaining != 5*time.Second {
		t.Errorf("remaining = %v, want frozen 5s", snap.Remaining)
	}
	if snap.MusicURL != "https://example.com/song" {
		t.Errorf("music url = %q", snap.MusicURL)
	}
}

func TestSetMusicURLValidation(t *testing.T) {
	f := newFixture(t, Options{})
	if err := f.ctrl.SetMusicURL("  "); !errors.Is(err, ErrEmptyMusicURL) {
		t.Errorf("SetMusicURL(blank) = %v, want ErrEmptyMusicURL", err)
	}
	if err := f.ctrl.SetMusicURL("https://example.com/tune"); err != nil {
		t.Fatal(err)
	}
	if got := f.store.Read().MusicURL; got != "https://example.com/tune" {
		t.Errorf("snapshot music url = %q", got)
	}
}

func TestNextMidnight(t *testing.T) {
	now := time.Date(2025, 12, 31, 18, 30, 0, 0, time.UTC)
	got := NextMidnight(now)
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextMidnight(%v) = %v, want %v", now, got, want)
	}
}
