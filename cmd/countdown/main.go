// Command countdown runs the robot countdown: a phase-driven choreography
// loop against the robot daemon, a web UI with the live camera feed and,
// optionally, a recording of the whole session.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"minibot.dev/countdown/config"
	"minibot.dev/countdown/countdown"
	"minibot.dev/countdown/daemon"
	"minibot.dev/countdown/media"
	"minibot.dev/countdown/record"
	"minibot.dev/countdown/state"
	"minibot.dev/countdown/stream"
)

// targetLayout is the wall-clock format accepted by --target, interpreted in
// local time.
const targetLayout = "2006-01-02T15:04:05"

type flags struct {
	target             string
	testSeconds        int
	once               bool
	celebrationSeconds int
	speakIntervals     bool
	recordVideo        bool
	videoOutput        string
	musicURL           string
	host               string
	port               int
	wireless           bool
	noCamera           bool
	debug              bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "countdown",
		Short: "Drive the mini robot through a countdown with a live camera feed",
		Long: `Counts down to a target time, animating the robot through waiting,
final-minute and final-ten phases, then celebrates at zero. A web UI on
the configured port shows the camera feed and controls the session.

Without --target or --test-seconds the countdown aims at the next local
midnight.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.target, "target", "", "absolute target time, e.g. 2026-12-31T23:59:59 (local)")
	cmd.Flags().IntVar(&f.testSeconds, "test-seconds", 0, "count down for this many seconds instead of a wall-clock target")
	cmd.Flags().BoolVar(&f.once, "once", false, "stop after the first celebration instead of rearming")
	cmd.Flags().IntVar(&f.celebrationSeconds, "celebration-seconds", 0, "how long the celebration lasts (default from config)")
	cmd.Flags().BoolVar(&f.speakIntervals, "speak-intervals", false, "announce the 10-second marks of the final minute")
	cmd.Flags().BoolVar(&f.recordVideo, "record", false, "record the session to an MP4")
	cmd.Flags().StringVar(&f.videoOutput, "video-output", "", "recording output path (default countdown_<timestamp>.mp4 in the video dir)")
	cmd.Flags().StringVar(&f.musicURL, "music-url", "", "celebration music URL")
	cmd.Flags().StringVar(&f.host, "host", "", "web UI bind address")
	cmd.Flags().IntVar(&f.port, "port", 0, "web UI port")
	cmd.Flags().BoolVar(&f.wireless, "wireless", false, "talk to the robot over the network instead of localhost")
	cmd.Flags().BoolVar(&f.noCamera, "no-camera", false, "serve a placeholder frame instead of the camera")
	cmd.Flags().BoolVar(&f.debug, "debug", false, "verbose logging")
	return cmd
}

func run(cmd *cobra.Command, f flags) error {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		With().Timestamp().Logger().Level(zerolog.InfoLevel)
	if f.debug {
		logger = logger.Level(zerolog.DebugLevel)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Host = f.host
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = f.port
	}
	if cmd.Flags().Changed("celebration-seconds") {
		cfg.CelebrationSeconds = f.celebrationSeconds
	}
	if f.musicURL != "" {
		cfg.MusicURL = f.musicURL
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Finish any recording a previous run left behind before opening a new one.
	record.NewSweeper(cfg.VideoDir, logger).Sweep()

	daemonURL := cfg.DaemonURL
	if daemonURL == "" {
		daemonURL = daemon.LocalURL
		if f.wireless {
			daemonURL = daemon.WirelessURL
		}
	}
	client := daemon.NewClient(daemonURL, logger)

	var source media.Source
	if f.noCamera {
		placeholder, err := media.NewPlaceholder(640, 480)
		if err != nil {
			return err
		}
		source = placeholder
	} else {
		shm, err := media.NewShmSource(media.DefaultShmDir, cfg.ShmName, logger)
		if err != nil {
			return fmt.Errorf("camera source: %w", err)
		}
		go shm.Run(ctx)
		source = shm
	}

	store := state.NewStore()
	ctrl := countdown.New(store, client, client, countdown.Options{
		Once:            f.once,
		CelebrationTime: time.Duration(cfg.CelebrationSeconds) * time.Second,
		SpeakIntervals:  f.speakIntervals,
	}, logger)
	if cfg.MusicURL != "" {
		if err := ctrl.SetMusicURL(cfg.MusicURL); err != nil {
			return err
		}
	}

	switch {
	case f.testSeconds > 0:
		if err := ctrl.Start(time.Duration(f.testSeconds) * time.Second); err != nil {
			return err
		}
	case f.target != "":
		target, err := time.ParseInLocation(targetLayout, f.target, time.Local)
		if err != nil {
			return fmt.Errorf("bad --target %q: %w", f.target, err)
		}
		if err := ctrl.StartAt(target); err != nil {
			return err
		}
	default:
		if err := ctrl.StartAt(countdown.NextMidnight(time.Now())); err != nil {
			return err
		}
	}
	go ctrl.Run(ctx)

	var rec *record.Recorder
	if f.recordVideo {
		outPath := f.videoOutput
		if outPath == "" {
			name := fmt.Sprintf("countdown_%s.mp4", time.Now().Format("20060102_150405"))
			outPath = filepath.Join(cfg.VideoDir, name)
		}
		rec, err = record.Open(outPath, record.DefaultFPS, logger)
		if err != nil {
			return err
		}
		go record.Pump(ctx, source, rec, logger)
	}

	server := stream.New(store, source, ctrl, logger)
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	serveErr := server.Run(ctx, addr)
	if errors.Is(serveErr, http.ErrServerClosed) {
		serveErr = nil
	}

	// The listener is down and the pump has stopped; mux the spooled frames.
	if rec != nil {
		if err := rec.Close(); err != nil {
			logger.Error().Err(err).Msg("recording finalize failed")
			if serveErr == nil {
				serveErr = err
			}
		}
	}
	return serveErr
}
