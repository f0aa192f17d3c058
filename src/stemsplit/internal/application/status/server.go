package status

import (
	"context"
	"net/http"
	"strconv"

	"github.com/apex/log"
	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"github.com/veedubyou/stemsplitter/src/stemsplit/internal/application/progress"
)

const badSinceCode = "bad_since"

type APIError struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

type EventsResponse struct {
	RunID  string           `json:"run_id"`
	Latest uint64           `json:"latest"`
	Events []progress.Event `json:"events"`
}

// Server exposes the run's progress over HTTP for the length of the run.
type Server struct {
	echo  *echo.Echo
	addr  string
	runID string
	bus   *progress.EventBus
}

func NewServer(addr string, runID string, bus *progress.EventBus) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:  e,
		addr:  addr,
		runID: runID,
		bus:   bus,
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/events", s.events)

	return s
}

// Handler is the router, for serving without a listener.
func (s *Server) Handler() *echo.Echo {
	return s.echo
}

func (s *Server) events(c echo.Context) error {
	var since uint64

	if value := c.QueryParam("since"); value != "" {
		parsed, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, APIError{
				Code: badSinceCode,
				Msg:  "since must be a non-negative event sequence number",
			})
		}
		since = parsed
	}

	response := EventsResponse{
		RunID:  s.runID,
		Events: s.bus.Since(since),
	}

	if latest, ok := s.bus.Latest(); ok {
		response.Latest = latest.Seq
	}

	return c.JSON(http.StatusOK, response)
}

// Start blocks until the server is shut down.
func (s *Server) Start() error {
	log.WithField("addr", s.addr).Info("Serving progress events")

	err := s.echo.Start(s.addr)
	if err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "Couldn't start status server")
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "Failed to stop status server")
	}

	return nil
}
