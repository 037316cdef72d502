package internal

import (
	"chatsphere/errors"
	"fmt"
	"strings"
	"time"
)

type Config struct {
	Host                  string        `env:"HOST,default=localhost"`
	Port                  int           `env:"PORT,default=8080"`
	GRPCHealthPort        int           `env:"GRPC_HEALTH_PORT,default=8081"`
	LogLevel              string        `env:"LOG_LEVEL,default=INFO"`
	BadgerFilepath        string        `env:"BADGER_FILEPATH,required=true"`
	BlobDirectory         string        `env:"BLOB_DIRECTORY,required=true"`
	BlobBaseURL           string        `env:"BLOB_BASE_URL,default=http://localhost:8080/media"`
	MaxUploadSize         int64         `env:"MAX_UPLOAD_SIZE,default=10485760"`
	JWTSecret             string        `env:"JWT_SECRET"`
	AllowedOrigins        string        `env:"ALLOWED_ORIGINS"`
	MaxMessageSize        int64         `env:"MAX_MESSAGE_SIZE,default=65536"`
	ConnectionBufferSize  int           `env:"CONNECTION_BUFFER_SIZE,default=256"`
	RateLimitPerSecond    float64       `env:"RATE_LIMIT_PER_SECOND,default=20"`
	RateLimitBurst        int           `env:"RATE_LIMIT_BURST,default=40"`
	PingInterval          time.Duration `env:"PING_INTERVAL,default=50s"`
	PongTimeout           time.Duration `env:"PONG_TIMEOUT,default=60s"`
	WriteTimeout          time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	StoreTimeout          time.Duration `env:"STORE_TIMEOUT,default=5s"`
	HeartbeatInterval     time.Duration `env:"HEARTBEAT_INTERVAL,default=30s"`
	RestartInterval       time.Duration `env:"RESTART_INTERVAL,default=1s"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	LimitMessages         *int          `env:"LIMIT_MESSAGES"`
	EdgeTriggeredPresence bool          `env:"EDGE_TRIGGERED_PRESENCE,default=false"`
}

// Validate rejects values the server cannot run with.
func (c Config) Validate() error {
	positives := map[string]int64{
		"PORT":                   int64(c.Port),
		"GRPC_HEALTH_PORT":       int64(c.GRPCHealthPort),
		"MAX_UPLOAD_SIZE":        c.MaxUploadSize,
		"MAX_MESSAGE_SIZE":       c.MaxMessageSize,
		"CONNECTION_BUFFER_SIZE": int64(c.ConnectionBufferSize),
		"PING_INTERVAL":          int64(c.PingInterval),
		"PONG_TIMEOUT":           int64(c.PongTimeout),
		"WRITE_TIMEOUT":          int64(c.WriteTimeout),
		"HEARTBEAT_INTERVAL":     int64(c.HeartbeatInterval),
		"RESTART_INTERVAL":       int64(c.RestartInterval),
		"SHUTDOWN_TIMEOUT":       int64(c.ShutdownTimeout),
	}
	for key, value := range positives {
		if value <= 0 {
			return fmt.Errorf("%w: %s must be positive", errors.ErrInvalidConfigField, key)
		}
	}
	if c.Port == c.GRPCHealthPort {
		return fmt.Errorf("%w: PORT and GRPC_HEALTH_PORT must differ", errors.ErrInvalidConfigField)
	}
	if c.PongTimeout <= c.PingInterval {
		return fmt.Errorf("%w: PONG_TIMEOUT must exceed PING_INTERVAL", errors.ErrInvalidConfigField)
	}
	if c.RateLimitPerSecond < 0 || (c.RateLimitPerSecond > 0 && c.RateLimitBurst <= 0) {
		return fmt.Errorf("%w: RATE_LIMIT_BURST must be positive when rate limiting", errors.ErrInvalidConfigField)
	}
	if c.StoreTimeout < 0 {
		return fmt.Errorf("%w: STORE_TIMEOUT cannot be negative", errors.ErrInvalidConfigField)
	}
	if c.LimitMessages != nil && *c.LimitMessages <= 0 {
		return fmt.Errorf("%w: LIMIT_MESSAGES must be positive", errors.ErrInvalidConfigField)
	}
	return nil
}

// Origins splits ALLOWED_ORIGINS on commas.
func (c Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
