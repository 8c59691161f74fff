package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/metaestate/showroom/backend/model"
	"github.com/rs/zerolog"
)

const defaultShutdownDeadline = 10 * time.Second

var ErrUnexpected = errors.New("unexpected server error")

// StateReader is the read-only view the debug API exposes. GET-only
// introspection aids; nothing here mutates state.
type StateReader interface {
	Participants() map[string]model.Participant
	ListingState() model.ListingState
}

type Server struct {
	logger zerolog.Logger
	state  StateReader
	*http.Server
}

type Config struct {
	Logger      *zerolog.Logger
	StateReader StateReader
	ListenAddr  string
}

func NewServer(cfg Config) *Server {
	srv := &Server{
		logger: cfg.Logger.With().Str("component", "api-server").Logger(),
		state:  cfg.StateReader,
	}

	r := http.NewServeMux()
	r.HandleFunc("GET /api/players", srv.players)
	r.HandleFunc("GET /api/listing", srv.listing)
	r.HandleFunc("OPTIONS /", corsHandler)

	srv.Server = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}
	return srv
}

func corsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")
	w.Header().Set("Access-Control-Max-Age", "86400")
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) players(w http.ResponseWriter, _ *http.Request) {
	srv.writeJSON(w, srv.state.Participants())
}

func (srv *Server) listing(w http.ResponseWriter, _ *http.Request) {
	srv.writeJSON(w, srv.state.ListingState())
}

func (srv *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	b, err := json.Marshal(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	if _, err = w.Write(b); err != nil {
		srv.logger.Error().Err(err).Msg("failed to write response")
	}
}

func (srv *Server) Run(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	defer func() {
		srv.logger.Debug().Msg("server stopped")
		wg.Done()
	}()

	hErr := make(chan error)
	go func() {
		hErr <- srv.ListenAndServe()
	}()

	srv.logger.Info().Str("addr", srv.Addr).Msg("server started")

	select {
	case err := <-hErr:
		if !errors.Is(err, http.ErrServerClosed) {
			errc <- errors.Join(ErrUnexpected, err)
		}
	case <-ctx.Done():
		shCtx, shCancel := context.WithTimeout(context.Background(), defaultShutdownDeadline)
		defer shCancel()
		if err := srv.Shutdown(shCtx); err != nil {
			srv.logger.Error().Err(err).Msg("server shutdown failed")
		}
	}
}
