package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

type Config struct {
	Host                string        `env:"HOST,default=0.0.0.0"`
	Port                int           `env:"PORT,default=4000"`
	OpsPort             int           `env:"OPS_PORT,default=4001"`
	DebugPort           int           `env:"DEBUG_PORT,default=8081"`
	JWTSecret           string        `env:"JWT_SECRET,required=true"`
	JWTIssuer           string        `env:"JWT_ISSUER,default=post-it"`
	AllowedOrigins      string        `env:"ALLOWED_ORIGINS,default=http://localhost:3000;https://post-it-heroku.herokuapp.com"`
	BadgerFilepath      string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel            string        `env:"LOG_LEVEL,default=INFO"`
	IdleTimeout         time.Duration `env:"IDLE_TIMEOUT,default=60s"`
	WriteTimeout        time.Duration `env:"WRITE_TIMEOUT,default=10s"`
	SessionBufferSize   int           `env:"SESSION_BUFFER_SIZE,default=256"`
	LifecycleBufferSize int           `env:"LIFECYCLE_BUFFER_SIZE,default=1024"`
	MaxBodyLength       int           `env:"MAX_BODY_LENGTH,default=2000"`
	MaxFrameBytes       int64         `env:"MAX_FRAME_BYTES,default=16384"`
	LimitMessages       *int          `env:"LIMIT_MESSAGES"`
	RestartInterval     time.Duration `env:"RESTART_INTERVAL,default=1s"`
	ReportInterval      time.Duration `env:"REPORT_INTERVAL,default=30s"`
	DispatchTimeout     time.Duration `env:"DISPATCH_TIMEOUT,default=2s"`
	ShutdownTimeout     time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// LoadConfig reads the environment, after merging an optional .env file.
// Variables already set in the environment win over the file.
func LoadConfig(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("dotenv: %w", err)
	}
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, err
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if len(c.JWTSecret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 bytes long")
	}
	if c.IdleTimeout < time.Second {
		return fmt.Errorf("IDLE_TIMEOUT must be at least 1s, got %s", c.IdleTimeout)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("WRITE_TIMEOUT must be positive")
	}
	if c.SessionBufferSize <= 0 {
		return fmt.Errorf("SESSION_BUFFER_SIZE must be positive, got %d", c.SessionBufferSize)
	}
	if c.LimitMessages != nil && *c.LimitMessages <= 0 {
		return fmt.Errorf("LIMIT_MESSAGES must be positive, got %d", *c.LimitMessages)
	}
	return nil
}

// Origins returns the cross-origin allow-list of the session endpoint.
func (c Config) Origins() []string {
	return ParseOrigins(c.AllowedOrigins)
}

// ParseOrigins splits a ';' or ',' separated list, dropping blanks and duplicates.
func ParseOrigins(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ';' || r == ',' })
	origins := lo.FilterMap(fields, func(origin string, _ int) (string, bool) {
		origin = strings.TrimSuffix(strings.TrimSpace(origin), "/")
		return origin, origin != ""
	})
	return lo.Uniq(origins)
}
