package database

import (
	"strconv"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// postgresDefaults tags server-side sessions so directory reads are easy to
// find in pg_stat_activity.
var postgresDefaults = map[string]string{
	"application_name": "gatekeeper",
	"sslmode":          "disable",
}

func postgresDialector(cfg Config) (gorm.Dialector, error) {
	dsn, err := buildPostgresDSN(cfg)
	if err != nil {
		return nil, err
	}
	return postgres.Open(dsn), nil
}

// buildPostgresDSN renders a libpq keyword/value string.
func buildPostgresDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	ep, err := serverEndpoint(cfg, "postgres", "localhost", 5432)
	if err != nil {
		return "", err
	}

	params := []string{
		"host=" + ep.host,
		"port=" + strconv.Itoa(ep.port),
		"user=" + cfg.User,
		"dbname=" + cfg.Name,
	}
	if cfg.Password != "" {
		params = append(params, "password="+cfg.Password)
	}
	params = append(params, mergeOptions(postgresDefaults, cfg.Options)...)
	return strings.Join(params, " "), nil
}
