package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/chatrelay/auth"
	chatpost "github.com/a-h/chatrelay/handlers/chat/post"
	pingget "github.com/a-h/chatrelay/handlers/ping/get"
	"github.com/a-h/chatrelay/relay"
	"github.com/rs/cors"
)

type ServeCommand struct {
	ListenAddr     string        `help:"The address to listen on." env:"LISTEN_ADDR" default:"localhost:9020"`
	TLSCertFile    string        `help:"The TLS certificate file." env:"TLS_CERT_FILE" default:""`
	TLSKeyFile     string        `help:"The TLS key file." env:"TLS_KEY_FILE" default:""`
	APIKeysFile    string        `help:"The file containing a JSON map of API keys to usernames. If empty, /api/chat is open." env:"API_KEYS_FILE" default:""`
	RequestTimeout time.Duration `help:"The maximum time to wait for the chat provider." env:"REQUEST_TIMEOUT" default:"60s"`
	LogLevel       string        `help:"The log level to use." env:"LOG_LEVEL" default:"info"`
}

func newHandler(log *slog.Logger, completer chatpost.Completer, apiKeyToUserName map[string]string) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /api/ping", pingget.New(log, time.Now))

	var cph http.Handler = chatpost.New(log, completer)
	if apiKeyToUserName != nil {
		cph = auth.New(apiKeyToUserName, cph)
	}
	mux.Handle("POST /api/chat", cph)

	return cors.AllowAll().Handler(mux)
}

func (c ServeCommand) Run(ctx context.Context) (err error) {
	log := getLogger(c.LogLevel)

	// Provider settings are read from the environment on every request.
	if cfg, err := relay.Resolve(relay.Environment); err != nil {
		log.Warn("no chat provider configured, chat requests will fail until one is", slog.Any("error", err))
	} else {
		log.Info("chat provider configured", slog.String("provider", cfg.Provider()))
	}
	r := relay.New(log, relay.Environment)
	r.Timeout = c.RequestTimeout

	var apiKeyToUserName map[string]string
	if c.APIKeysFile != "" {
		apiKeyToUserName, err = auth.LoadFromFile(c.APIKeysFile)
		if err != nil {
			return fmt.Errorf("failed to load API keys: %w", err)
		}
		log.Info("API key authentication enabled", slog.Int("keys", len(apiKeyToUserName)))
	}

	log.Info("Listening", slog.String("addr", c.ListenAddr))
	s := &http.Server{
		Addr:              c.ListenAddr,
		Handler:           newHandler(log, r, apiKeyToUserName),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if c.TLSCertFile != "" && c.TLSKeyFile != "" {
		log.Info("Enabling TLS mode")
		var cert tls.Certificate
		cert, err = tls.LoadX509KeyPair(c.TLSCertFile, c.TLSKeyFile)
		if err != nil {
			return fmt.Errorf("failed to load cert: %w", err)
		}
		s.TLSConfig = &tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{cert},
		}
		return s.ListenAndServeTLS(c.TLSCertFile, c.TLSKeyFile)
	}
	return s.ListenAndServe()
}
