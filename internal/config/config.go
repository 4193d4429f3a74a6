package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Address string

	DBDriver string
	DBURL    string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	MediaDir string
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("env: %s: %w", key, err)
	}
	return d, nil
}

// Load reads envFile when it exists and builds the config from the
// environment. Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("No %s file loaded: %v", envFile, err)
		}
	}

	accessTTL, err := getDuration("ACCESS_TOKEN_TTL", 5*time.Minute)
	if err != nil {
		return Config{}, err
	}

	refreshTTL, err := getDuration("REFRESH_TOKEN_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}

	return Config{
		Address:         getEnv("ADDRESS", ":8080"),
		DBDriver:        strings.ToLower(getEnv("DB_DRIVER", "libsql")),
		DBURL:           os.Getenv("DB_URL"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
		MediaDir:        getEnv("MEDIA_DIR", "./media"),
	}, nil
}

func (c Config) Validate() error {
	var errs []error

	if c.DBURL == "" {
		errs = append(errs, errors.New("env: DB_URL not specified"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("env: JWT_SECRET not specified"))
	}
	if c.DBDriver != "libsql" && c.DBDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("env: DB_DRIVER %q must be libsql or sqlite", c.DBDriver))
	}

	return errors.Join(errs...)
}
