package stream

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// videoFeed streams the camera as multipart JPEG. Each connection runs its
// own loop and pulls frames at its own pace; writing to one client can only
// block that client's loop.
func (s *Server) videoFeed(c echo.Context) error {
	viewer := uuid.NewString()[:8]
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "multipart/x-mixed-replace; boundary=frame")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set(echo.HeaderConnection, "close")
	res.WriteHeader(http.StatusOK)

	mw := multipart.NewWriter(res)
	mw.SetBoundary("frame")

	s.log.Info().Str("viewer", viewer).Msg("viewer connected")
	defer s.log.Info().Str("viewer", viewer).Msg("viewer disconnected")

	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()
	reqCtx := c.Request().Context()
	for {
		select {
		case <-s.ctx.Done():
			return nil
		case <-reqCtx.Done():
			return nil
		case <-ticker.C:
			frame, err := s.source.Frame(reqCtx)
			if err != nil {
				// Source stalled; the viewer keeps its last image.
				continue
			}
			if err := writeFramePart(mw, frame); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeFramePart(mw *multipart.Writer, frame []byte) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", "image/jpeg")
	header.Set("Content-Length", fmt.Sprintf("%d", len(frame)))
	part, err := mw.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(frame)
	return err
}
