package main

import (
	"net/http"
	"time"

	"github.com/Mjnllee/kidfromanila/internal/config"
)

// writeTimeoutMargin leaves room to write the response of a request that ran
// up to the request timeout.
const writeTimeoutMargin = 5 * time.Second

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + writeTimeoutMargin,
		IdleTimeout:  60 * time.Second,
	}
}
