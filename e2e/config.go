package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SERVER_ADDR is host:port of a running chatsphere; the suite skips when empty
	ServerAddr string `envconfig:"E2E_SERVER_ADDR"`
	HealthAddr string `envconfig:"E2E_HEALTH_ADDR" default:"localhost:8081"`
	// E2E_JWT_SECRET must match the server's JWT_SECRET to exercise the REST history
	JWTSecret string `envconfig:"E2E_JWT_SECRET"`
	// E2E_DEBUG_JSON dumps every frame and gRPC body as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
