package app

import (
	"strings"
	"time"

	"github.com/yungbote/reqmatch-backend/internal/platform/envutil"
	"github.com/yungbote/reqmatch-backend/internal/platform/logger"
)

const defaultJWTSecret = "defaultsecret"

type Config struct {
	JWTSecretKey   string
	AccessTokenTTL time.Duration
	JWTIssuer      string

	HTTPAddr    string
	MetricsAddr string
	Environment string

	// EngineConfigPath points at a YAML or TOML engine config; empty uses defaults.
	EngineConfigPath string
	VectorProvider   string
}

func LoadConfig(log *logger.Logger) Config {
	cfg := Config{
		JWTSecretKey:     envutil.String("JWT_SECRET_KEY", defaultJWTSecret),
		AccessTokenTTL:   envutil.Seconds("ACCESS_TOKEN_TTL", time.Hour),
		JWTIssuer:        envutil.String("JWT_ISSUER", ""),
		HTTPAddr:         envutil.String("HTTP_ADDR", ":8080"),
		MetricsAddr:      envutil.String("METRICS_ADDR", ""),
		Environment:      envutil.String("APP_ENV", "development"),
		EngineConfigPath: envutil.String("REQMATCH_CONFIG", ""),
		VectorProvider:   strings.ToLower(envutil.String("VECTOR_PROVIDER", "")),
	}
	if log != nil && cfg.JWTSecretKey == defaultJWTSecret {
		log.Warn("JWT_SECRET_KEY not set, using insecure default")
	}
	return cfg
}
