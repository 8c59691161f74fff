package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/metaestate/showroom/backend/listing"
	"github.com/metaestate/showroom/backend/registry"
	"github.com/metaestate/showroom/backend/router"
	httpServer "github.com/metaestate/showroom/backend/server/http"
	websocketServer "github.com/metaestate/showroom/backend/server/websocket"
	"github.com/metaestate/showroom/backend/service"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	// Local .env, dev convenience only.
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	fs := pflag.NewFlagSet("main", pflag.ContinueOnError)

	var (
		apiListenAddr = fs.StringP("api-listen-addr", "a", envOr("API_LISTEN_ADDR", ":8080"), "debug api listen address")
		wsListenAddr  = fs.StringP("ws-listen-addr", "w", envOr("WS_LISTEN_ADDR", ":8888"), "websocket listen address")
		logLevel      = fs.StringP("log-level", "l", envOr("LOG_LEVEL", "debug"), "log level")
	)
	if err := fs.Parse(os.Args[1:]); err != nil {
		logger.Fatal().Err(err).Msg("failed to parse command line arguments")
	}

	lvl, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse loglevel")
	}
	logger = logger.Level(lvl)

	svc := service.New(service.Config{
		Registry: registry.New(),
		Router:   router.New(&logger),
		Listing:  listing.New(),
		Logger:   &logger,
	})
	apiSrv := httpServer.NewServer(httpServer.Config{
		Logger:      &logger,
		StateReader: svc,
		ListenAddr:  *apiListenAddr,
	})
	wsSrv := websocketServer.NewServer(websocketServer.Config{
		Logger:         &logger,
		SessionService: svc,
		ListenAddr:     *wsListenAddr,
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var (
		wg   = &sync.WaitGroup{}
		errc = make(chan error, 2)
	)
	wg.Add(2)
	go apiSrv.Run(ctx, wg, errc)
	go wsSrv.Run(ctx, wg, errc)

	select {
	case err = <-errc:
		logger.Error().Err(err).Msg("unexpected server error, shutting down")
	case <-ctx.Done():
		logger.Warn().Msg("interrupted")
	}
	cancel()
	wg.Wait()
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
