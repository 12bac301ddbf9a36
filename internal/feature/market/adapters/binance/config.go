// Package binance maintains the streaming connection to the Binance kline feed.
package binance

import (
	"fmt"
	"os"
	"time"
)

// Config holds configuration for the Binance stream connector.
type Config struct {
	BaseURL       string        // Websocket base URL (e.g. "wss://stream.binance.com:9443/ws")
	Symbol        string        // Lowercase stream symbol (e.g. "btcusdt")
	Interval      string        // Kline interval (e.g. "1m")
	DialTimeout   time.Duration // Websocket handshake timeout
	ReconnectBase time.Duration // Base delay for reconnect backoff
	ReconnectMax  time.Duration // Cap for reconnect backoff
	MaxAttempts   int           // Consecutive failed attempts before giving up
}

// LoadConfig loads the connector configuration from environment variables,
// falling back to the BTC/USDT one-minute stream.
func LoadConfig() Config {
	cfg := Config{
		BaseURL:       os.Getenv("BINANCE_WS_URL"),
		Symbol:        os.Getenv("BINANCE_SYMBOL"),
		Interval:      os.Getenv("BINANCE_KLINE_INTERVAL"),
		DialTimeout:   10 * time.Second,
		ReconnectBase: time.Second,
		ReconnectMax:  30 * time.Second,
		MaxAttempts:   10,
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "wss://stream.binance.com:9443/ws"
	}
	if cfg.Symbol == "" {
		cfg.Symbol = "btcusdt"
	}
	if cfg.Interval == "" {
		cfg.Interval = "1m"
	}
	return cfg
}

// StreamURL returns the full websocket URL for the configured stream.
func (c Config) StreamURL() string {
	return fmt.Sprintf("%s/%s@kline_%s", c.BaseURL, c.Symbol, c.Interval)
}
