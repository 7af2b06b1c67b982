package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-auth-client/apiclient"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/server"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/token/filerepo"
	tokenfakerepo "github.com/jrsteele09/go-auth-client/token/repofake"
	"github.com/jrsteele09/go-auth-client/token/sqliterepo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running server")
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())

	ctx := context.Background()
	repo, err := newTokenRepo(ctx, c)
	if err != nil {
		return err
	}

	store := token.NewStore(repo, log.Logger)
	client := apiclient.New(store, apiclient.Options{
		BaseURL: c.GetAPIBaseURL(),
		Timeout: c.GetRequestTimeout(),
		Logger:  log.Logger,
	})
	session := sessions.New(store, client, sessions.Options{
		Navigator: server.RequestNavigator{},
		Logger:    log.Logger,
	})
	defer func() {
		if err := session.Close(); err != nil {
			log.Err(err).Msg("failed to close token storage")
		}
	}()
	if err := session.Init(ctx); err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	handler, err := server.New(c, session)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	log.Info().Str("url", c.GetBaseURL()).Str("api", c.GetAPIBaseURL()).Msg("Account UI ready")
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// newTokenRepo picks the credential storage backend.
func newTokenRepo(ctx context.Context, c config.Config) (token.Repo, error) {
	kind := c.GetTokenStorageKind()
	log.Info().Str("kind", kind).Msg("token storage")

	switch kind {
	case config.StorageKindFile:
		return filerepo.New(c.GetTokenFilePath(), c.GetStorageKey())
	case config.StorageKindSQLite:
		return sqliterepo.New(ctx, c.GetTokenDBPath())
	case config.StorageKindMemory:
		return tokenfakerepo.NewFakeTokenRepo(), nil
	default:
		return nil, fmt.Errorf("unknown token storage kind %q", kind)
	}
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
