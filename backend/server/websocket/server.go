package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/metaestate/showroom/backend/model"
	"github.com/rs/zerolog"
)

const (
	defaultShutdownDeadline = 10 * time.Second

	defaultReadBufferSize    = 4096
	defaultWriteBufferSize   = 4096
	defaultMaxMessageSize    = 8192
	defaultHandshakeTimeout  = 3 * time.Second
	defaultWriteDeadline     = 5 * time.Second
	defaultCloseWriteTimeout = 2 * time.Second

	// defaultPongWait - defaultPingInterval is how long a client gets to
	// answer a ping before its read deadline expires.
	defaultPingInterval = 5 * time.Second
	defaultPongWait     = 7 * time.Second
)

var ErrUnexpected = errors.New("unexpected server error")

type (
	SessionService interface {
		CreateSession(ctx context.Context, id string, wire model.Wire)
		DeleteSession(ctx context.Context, id string)
	}

	Config struct {
		Logger         *zerolog.Logger
		SessionService SessionService
		ListenAddr     string
	}

	Server struct {
		svc SessionService
		ws  *websocket.Upgrader
		*http.Server

		logger zerolog.Logger
	}
)

func NewServer(cfg Config) *Server {
	srv := &Server{
		logger: cfg.Logger.With().Str("component", "websocket-server").Logger(),
		svc:    cfg.SessionService,
		ws: &websocket.Upgrader{
			HandshakeTimeout: defaultHandshakeTimeout,
			ReadBufferSize:   defaultReadBufferSize,
			WriteBufferSize:  defaultWriteBufferSize,
			CheckOrigin:      func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", srv.session)

	srv.Server = &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: mux,
	}
	return srv
}

func (srv *Server) Run(ctx context.Context, wg *sync.WaitGroup, errc chan<- error) {
	defer func() {
		srv.logger.Debug().Msg("server stopped")
		wg.Done()
	}()

	errSrv := make(chan error)
	go func() {
		errSrv <- srv.ListenAndServe()
	}()

	srv.logger.Info().Str("addr", srv.Addr).Msg("server started")

	select {
	case err := <-errSrv:
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

// session upgrades the connection, assigns it a fresh id and runs the read
// and write pumps until either side goes away.
func (srv *Server) session(w http.ResponseWriter, r *http.Request) {
	conn, err := srv.ws.Upgrade(w, r, nil)
	if err != nil {
		srv.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := uuid.NewString()
	wire := model.NewWire()

	ctx, cancel := context.WithCancel(context.Background()) // session outlives the upgrade request
	srv.svc.CreateSession(ctx, id, wire)
	srv.logger.Debug().Str("id", id).Msg("session created")

	go srv.runPumps(ctx, cancel, conn, id, wire)
}

func (srv *Server) runPumps(
	ctx context.Context,
	cancel context.CancelFunc,
	conn *websocket.Conn,
	id string,
	wire model.Wire,
) {
	logger := srv.logger.With().Str("id", id).Logger()

	wg := &sync.WaitGroup{}
	wg.Add(2)
	go func() {
		readPump(ctx, wg, conn, wire.RX, &logger)
		cancel()
	}()
	go func() {
		writePump(ctx, wg, conn, wire.TX, &logger)
		cancel()
	}()
	wg.Wait()

	closeConn(conn, &logger)
	srv.svc.DeleteSession(context.Background(), id)
	logger.Debug().Msg("session ended")
}

// readPump decodes inbound frames into envelopes and hands them to the
// wire. Frames that are not valid envelopes are dropped at this boundary.
func readPump(
	ctx context.Context,
	wg *sync.WaitGroup,
	conn *websocket.Conn,
	rx chan<- model.Envelope,
	logger *zerolog.Logger,
) {
	defer wg.Done()

	conn.SetReadLimit(defaultMaxMessageSize)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(defaultPongWait))
	})
	if err := conn.SetReadDeadline(time.Now().Add(defaultPongWait)); err != nil {
		logger.Error().Err(err).Msg("failed to set read deadline")
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug().Err(err).Msg("connection closed")
			} else {
				logger.Error().Err(err).Msg("unexpected error during receive")
			}
			return
		}

		var env model.Envelope
		if err = json.Unmarshal(raw, &env); err != nil || env.Type == "" {
			logger.Debug().Err(err).Msg("invalid frame, dropped")
			continue
		}

		select {
		case rx <- env:
		case <-ctx.Done():
			return
		}
	}
}

func writePump(
	ctx context.Context,
	wg *sync.WaitGroup,
	conn *websocket.Conn,
	tx <-chan model.Envelope,
	logger *zerolog.Logger,
) {
	pingTicker := time.NewTicker(defaultPingInterval)
	defer func() {
		pingTicker.Stop()
		wg.Done()
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-pingTicker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(defaultWriteDeadline)); err != nil {
				logger.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				logger.Error().Err(err).Msg("failed to send ping")
				return
			}

		case env, ok := <-tx:
			if !ok {
				return
			}
			if err := conn.SetWriteDeadline(time.Now().Add(defaultWriteDeadline)); err != nil {
				logger.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if err := conn.WriteJSON(env); err != nil {
				logger.Error().Err(err).Msg("failed to write frame")
				return
			}
		}
	}
}

func closeConn(conn *websocket.Conn, logger *zerolog.Logger) {
	if err := conn.SetWriteDeadline(time.Now().Add(defaultCloseWriteTimeout)); err == nil {
		_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
	}
	if err := conn.Close(); err != nil {
		logger.Error().Err(err).Msg("failed to close connection")
	}
}
