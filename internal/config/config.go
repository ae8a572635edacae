// Package config provides configuration helpers for the nav SDK.
package config

import (
	"os"
	"strconv"
	"time"
)

// Default timeouts, per the SDK's closed configuration set.
const (
	DefaultConnectTimeout = 5000 * time.Millisecond
	DefaultRequestTimeout = 3000 * time.Millisecond
)

// ConnectTimeout returns the connect timeout from NAVSDK_CONNECT_TIMEOUT_MS
// if set, falling back to the provided default.
func ConnectTimeout(def time.Duration) time.Duration {
	return durationFromEnvMS("NAVSDK_CONNECT_TIMEOUT_MS", def)
}

// RequestTimeout returns the request timeout from NAVSDK_REQUEST_TIMEOUT_MS
// if set, falling back to the provided default.
func RequestTimeout(def time.Duration) time.Duration {
	return durationFromEnvMS("NAVSDK_REQUEST_TIMEOUT_MS", def)
}

func durationFromEnvMS(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
