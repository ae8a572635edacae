package navsdk

import (
	"time"

	"github.com/tailu123/x30-nav-sdk/internal/config"
)

// Config is the SDK's closed configuration set: a connect
// timeout and a per-request timeout. There is no file-based configuration
// loader — deployments override either value with an environment variable,
// following internal/config's env-with-fallback pattern.
type Config struct {
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
}

// DefaultConfig returns {5000ms, 3000ms}, each overridable via
// NAVSDK_CONNECT_TIMEOUT_MS / NAVSDK_REQUEST_TIMEOUT_MS.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: config.ConnectTimeout(config.DefaultConnectTimeout),
		RequestTimeout: config.RequestTimeout(config.DefaultRequestTimeout),
	}
}
