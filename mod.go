// Package canvass is a governance client. It lets a wallet-connected voter
// stage votes on several polls, attach signed comments and submit them in a
// single batched transaction.
//
// The package exposes the global logger and the list of Prometheus collectors
// populated by the sub-packages.
//
// Documentation Last Review: 02.09.2026
//
package canvass

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var logout = zerolog.ConsoleWriter{
	Out:        os.Stdout,
	TimeFormat: time.RFC3339,
}

// Logger is a globally available logger instance.
var Logger = zerolog.New(logout).
	With().Timestamp().Logger().
	With().Caller().Logger().
	Level(zerolog.InfoLevel)

// PromCollectors exposes the Prometheus collectors created in the packages of
// this module. They are registered by the proxy when the metrics handler is
// started.
var PromCollectors []prometheus.Collector
