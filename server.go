package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/CodedInternet/gojacobian/onboard"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/websocket"
)

const DEFAULT_JOURNAL_LIMIT = 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ErrResponse renders an API error.
type ErrResponse struct {
	Err            error  `json:"-"`
	HTTPStatusCode int    `json:"-"`
	StatusText     string `json:"status"`
	ErrorText      string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrRender(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnprocessableEntity,
		StatusText:     "Error rendering response.",
		ErrorText:      err.Error(),
	}
}

var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found."}

// StateServer is the read-only state feed. Nothing it serves can change the
// vehicle.
type StateServer struct {
	ctrl     *onboard.Controller
	train    *onboard.Drivetrain
	journal  *Journal // nil when journaling is off
	interval time.Duration
	log      *slog.Logger
}

func NewStateServer(ctrl *onboard.Controller, train *onboard.Drivetrain, journal *Journal, interval time.Duration, log *slog.Logger) *StateServer {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &StateServer{
		ctrl:     ctrl,
		train:    train,
		journal:  journal,
		interval: interval,
		log:      log,
	}
}

func (s *StateServer) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.getState)
		r.Get("/journal", s.getJournal)
	})
	r.Route("/ws", func(r chi.Router) {
		r.Get("/state", s.streamState)
	})
	return r
}

func (s *StateServer) snapshot() onboard.State {
	return onboard.Snapshot(s.ctrl, s.train)
}

func (s *StateServer) getState(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.snapshot())
}

func (s *StateServer) getJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		render.Render(w, r, ErrNotFound)
		return
	}

	limit := DEFAULT_JOURNAL_LIMIT
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			render.Render(w, r, ErrInvalidRequest(errors.New("limit must be a positive integer")))
			return
		}
		limit = n
	}

	entries, err := s.journal.Recent(limit)
	if err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}
	render.JSON(w, r, entries)
}

// streamState pushes a snapshot every interval until the client leaves or the
// controller stops.
func (s *StateServer) streamState(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "tag", "Error", "err", err)
		return
	}
	defer conn.Close()

	// the client never sends anything; reading only notices it going away
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if err := conn.WriteJSON(s.snapshot()); err != nil {
			return
		}
		if !s.ctrl.IsRunning() {
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session stopped"))
			return
		}

		select {
		case <-gone:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// ListenAndServe serves the feed on addr until ctx is done.
func (s *StateServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Routes()}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("state feed listening", "tag", "Success", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
