package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port         int      `env:"PORT" envDefault:"8080"`
	DBDSN        string   `env:"DB_DSN"`
	DBMaxConns   int32    `env:"DB_MAX_CONNS" envDefault:"10"`
	RedisURL     string   `env:"REDIS_URL"`
	JWTSecret    string   `env:"JWT_SECRET"`
	AllowOrigins []string `env:"ALLOW_ORIGINS" envSeparator:","`
	LogLevel     string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat    string   `env:"LOG_FORMAT" envDefault:"console"`
}

// Load carrega .env (quando existir), lê o ambiente e valida.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize() error {
	if c.Port <= 0 {
		return errors.New("PORT inválida")
	}

	c.DBDSN = strings.TrimSpace(c.DBDSN)
	if c.DBDSN == "" {
		return errors.New("DB_DSN obrigatório")
	}
	if c.DBMaxConns <= 0 {
		return errors.New("DB_MAX_CONNS deve ser positivo")
	}

	// REDIS_URL vazio desativa a revogação de sessões no logout
	c.RedisURL = strings.TrimSpace(c.RedisURL)

	c.JWTSecret = strings.TrimSpace(c.JWTSecret)
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	origins := c.AllowOrigins[:0]
	for _, origin := range c.AllowOrigins {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	c.AllowOrigins = origins

	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT inválido: %q", c.LogFormat)
	}
	return nil
}
