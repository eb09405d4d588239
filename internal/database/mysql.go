package database

import (
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// mysqlDefaults keep timestamps as time.Time and allow full Unicode role names.
var mysqlDefaults = map[string]string{
	"charset":   "utf8mb4",
	"loc":       "Local",
	"parseTime": "True",
}

func mysqlDialector(cfg Config) (gorm.Dialector, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return mysql.Open(dsn), nil
}

// buildMySQLDSN renders a go-sql-driver DSN over TCP.
func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	ep, err := serverEndpoint(cfg, "mysql", "127.0.0.1", 3306)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(cfg.User)
	if cfg.Password != "" {
		b.WriteByte(':')
		b.WriteString(cfg.Password)
	}
	b.WriteString("@tcp(")
	b.WriteString(ep.address())
	b.WriteString(")/")
	b.WriteString(cfg.Name)
	b.WriteByte('?')
	b.WriteString(strings.Join(mergeOptions(mysqlDefaults, cfg.Options), "&"))
	return b.String(), nil
}
