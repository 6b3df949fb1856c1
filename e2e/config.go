package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_SERVER_ADDR is the host:port of a running realtime server; the suites skip when empty
	ServerAddr string `envconfig:"E2E_SERVER_ADDR"`
	OpsAddr    string `envconfig:"E2E_OPS_ADDR"`
	JWTSecret  string `envconfig:"JWT_SECRET"`
	JWTIssuer  string `envconfig:"JWT_ISSUER" default:"post-it"`
	// E2E_DEBUG_JSON allows dumping full frames and gRPC bodies as JSON
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
