package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// DSN renders the connection string under the given URL scheme. pgxpool wants
// "postgres", golang-migrate's pgx driver wants "pgx5".
func (c DBConfig) DSN(scheme string) string {
	return fmt.Sprintf(
		"%s://%s:%s@%s:%d/%s?sslmode=disable",
		scheme,
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
	)
}

type MQConfig struct {
	URL            string `yaml:"url"`
	Prefetch       int    `yaml:"prefetch"`
	Workers        int    `yaml:"workers"`
	ConsumeTimeout int    `yaml:"consume_timeout_seconds"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// IMConfig points at the instant-messaging provider endpoint.
type IMConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// EmailConfig points at the mail provider endpoint.
type EmailConfig struct {
	URL  string `yaml:"url"`
	From string `yaml:"from"`
}

// SiteConfig describes the blog the comments belong to. BaseURL is used to
// build article links embedded in notifications.
type SiteConfig struct {
	BaseURL string `yaml:"base_url"`
}

// CORSConfig lists allowed origins. An entry wrapped in slashes, like
// "/https://.*\.example\.com/", is treated as a regular expression.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	MQ     MQConfig     `yaml:"mq"`
	Redis  RedisConfig  `yaml:"redis"`
	IM     IMConfig     `yaml:"im"`
	Email  EmailConfig  `yaml:"email"`
	Site   SiteConfig   `yaml:"site"`
	CORS   CORSConfig   `yaml:"cors"`
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.MQ.Prefetch == 0 {
		cfg.MQ.Prefetch = 8
	}
	if cfg.MQ.Workers == 0 {
		cfg.MQ.Workers = 4
	}
	if cfg.MQ.ConsumeTimeout == 0 {
		cfg.MQ.ConsumeTimeout = 30
	}
}

func overrideFromEnv(cfg *Config) {
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DB.Host = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.DB.Port = p
		}
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DB.User = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DB.Password = password
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.DB.Name = name
	}

	if url := os.Getenv("MQ_URL"); url != "" {
		cfg.MQ.URL = url
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Server.Port = port
	}

	if url := os.Getenv("IM_URL"); url != "" {
		cfg.IM.URL = url
	}
	if token := os.Getenv("IM_TOKEN"); token != "" {
		cfg.IM.Token = token
	}

	if url := os.Getenv("EMAIL_URL"); url != "" {
		cfg.Email.URL = url
	}
	if from := os.Getenv("EMAIL_FROM"); from != "" {
		cfg.Email.From = from
	}

	if baseURL := os.Getenv("SITE_BASE_URL"); baseURL != "" {
		cfg.Site.BaseURL = baseURL
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORS.AllowedOrigins = splitAndTrim(origins)
	}
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
