// Package stream exposes the countdown over HTTP: a control page, a live
// MJPEG camera feed, a JSON status endpoint, a websocket status push and
// the control API. Every viewer gets its own delivery loop pulling frames
// independently, so one slow client never stalls the others.
package stream

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"minibot.dev/countdown/countdown"
	"minibot.dev/countdown/media"
	"minibot.dev/countdown/state"
)

const defaultFrameInterval = 33 * time.Millisecond // ~30 FPS

// Controller is the slice of the countdown controller the HTTP handlers
// need.
type Controller interface {
	Start(d time.Duration) error
	Stop()
	Reset()
	SetMusicURL(url string) error
	SetSpeakIntervals(on bool)
}

type Server struct {
	echo          *echo.Echo
	store         *state.Store
	source        media.Source
	ctrl          Controller
	hub           *Hub
	log           zerolog.Logger
	frameInterval time.Duration

	// ctx is the process-wide shutdown signal; streaming loops observe it
	// in addition to their own request contexts.
	ctx context.Context
}

func New(store *state.Store, source media.Source, ctrl Controller, log zerolog.Logger) *Server {
	log = log.With().Str("component", "stream").Logger()
	s := &Server{
		echo:          echo.New(),
		store:         store,
		source:        source,
		ctrl:          ctrl,
		hub:           NewHub(store, log),
		log:           log,
		frameInterval: defaultFrameInterval,
		ctx:           context.Background(),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Use(middleware.Recover())
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.log.Debug().Str("method", v.Method).Str("uri", v.URI).Int("status", v.Status).Msg("request")
			return nil
		},
	}))

	s.echo.GET("/", s.index)
	s.echo.GET("/video_feed", s.videoFeed)
	s.echo.GET("/countdown", s.countdownStatus)
	s.echo.GET("/camera/test", s.cameraTest)
	s.echo.GET("/ws", s.hub.Handle)
	s.echo.POST("/start", s.start)
	s.echo.POST("/stop", s.stop)
	s.echo.POST("/reset", s.reset)
	s.echo.POST("/music", s.setMusic)
	s.echo.POST("/speak-intervals", s.setSpeakIntervals)
	return s
}

// Run serves until ctx is cancelled, then shuts the listener down and lets
// in-flight streams drain.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.ctx = ctx
	go s.hub.Run(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- s.echo.Start(addr) }()
	s.log.Info().Str("addr", addr).Msg("web ui listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type countdownResponse struct {
	Remaining float64 `json:"remaining"`
	Formatted string  `json:"formatted"`
	Phase     string  `json:"phase"`
	Running   bool    `json:"running"`
	MusicURL  string  `json:"musicUrl"`
	Target    string  `json:"target,omitempty"`
}

func snapshotJSON(snap state.Snapshot) countdownResponse {
	resp := countdownResponse{
		Remaining: snap.Remaining.Seconds(),
		Formatted: snap.Formatted(),
		Phase:     snap.Phase.String(),
		Running:   snap.Running,
		MusicURL:  snap.MusicURL,
	}
	if !snap.Target.IsZero() {
		resp.Target = snap.Target.Format(time.RFC3339)
	}
	return resp
}

func (s *Server) index(c echo.Context) error {
	return c.HTML(http.StatusOK, indexHTML)
}

func (s *Server) countdownStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, snapshotJSON(s.store.Read()))
}

func (s *Server) start(c echo.Context) error {
	var req struct {
		Seconds int `json:"seconds"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, statusResponse{Error: "invalid request body"})
	}
	d := countdown.DefaultDuration
	if req.Seconds != 0 {
		d = time.Duration(req.Seconds) * time.Second
	}
	if err := s.ctrl.Start(d); err != nil {
		return c.JSON(http.StatusBadRequest, statusResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, statusResponse{Success: true, Message: "countdown started"})
}

func (s *Server) stop(c echo.Context) error {
	s.ctrl.Stop()
	return c.JSON(http.StatusOK, statusResponse{Success: true, Message: "countdown stopped"})
}

func (s *Server) reset(c echo.Context) error {
	s.ctrl.Reset()
	return c.JSON(http.StatusOK, statusResponse{Success: true, Message: "countdown reset"})
}

func (s *Server) setMusic(c echo.Context) error {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, statusResponse{Error: "invalid request body"})
	}
	if err := s.ctrl.SetMusicURL(req.URL); err != nil {
		return c.JSON(http.StatusBadRequest, statusResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, statusResponse{Success: true, Message: "music updated"})
}

func (s *Server) setSpeakIntervals(c echo.Context) error {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, statusResponse{Error: "invalid request body"})
	}
	s.ctrl.SetSpeakIntervals(req.Enabled)
	return c.JSON(http.StatusOK, statusResponse{Success: true})
}

func (s *Server) cameraTest(c echo.Context) error {
	frame, err := s.source.Frame(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusNotFound, statusResponse{Error: "no frame available"})
	}
	return c.Blob(http.StatusOK, "image/jpeg", frame)
}
