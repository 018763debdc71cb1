package main

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sonirico/wsconn"
)

const (
	envTransport    = "WSCONN_TRANSPORT"
	envPingInterval = "WSCONN_PING_INTERVAL"
	envHeader       = "WSCONN_HEADER"
	envReconnect    = "WSCONN_RECONNECT"
	envMaxBackoff   = "WSCONN_MAX_BACKOFF"
	envJSON         = "WSCONN_JSON"
	envVerbose      = "WSCONN_VERBOSE"

	defaultMaxBackoff = 30 * time.Second
)

// envDefaults builds the flag defaults from WSCONN_* variables. Flags given on
// the command line always win.
func envDefaults(getenv func(string) string) (connectConfig, error) {
	cfg := connectConfig{
		transport:    transportFastHTTP,
		pingInterval: wsconn.DefaultPingInterval,
		maxBackoff:   defaultMaxBackoff,
	}

	if v := getenv(envTransport); v != "" {
		cfg.transport = v
	}

	if v := getenv(envHeader); v != "" {
		cfg.headers = []string{v}
	}

	var err error

	if cfg.pingInterval, err = envDuration(getenv, envPingInterval, cfg.pingInterval); err != nil {
		return cfg, err
	}
	if cfg.maxBackoff, err = envDuration(getenv, envMaxBackoff, cfg.maxBackoff); err != nil {
		return cfg, err
	}
	if cfg.reconnect, err = envBool(getenv, envReconnect); err != nil {
		return cfg, err
	}
	if cfg.json, err = envBool(getenv, envJSON); err != nil {
		return cfg, err
	}
	if cfg.verbose, err = envBool(getenv, envVerbose); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func envDuration(getenv func(string) string, key string, fallback time.Duration) (time.Duration, error) {
	v := getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback, errors.Wrapf(err, "invalid %s", key)
	}

	return d, nil
}

func envBool(getenv func(string) string, key string) (bool, error) {
	v := getenv(key)
	if v == "" {
		return false, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.Wrapf(err, "invalid %s", key)
	}

	return b, nil
}
