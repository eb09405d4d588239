package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildPostgresDSNDefaults(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "gatekeeper", Name: "directory"})
	require.NoError(t, err)
	require.Equal(t, "host=localhost port=5432 user=gatekeeper dbname=directory application_name=gatekeeper sslmode=disable", dsn)
}

func TestBuildPostgresDSNWithOptions(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{
		User:     "user",
		Name:     "db",
		Host:     "db.example.com",
		Port:     6543,
		Password: "pass",
		Options: map[string]string{
			"sslmode":     "require",
			"search_path": "public",
		},
	})
	require.NoError(t, err)
	for _, part := range []string{"host=db.example.com", "port=6543", "password=pass", "sslmode=require", "search_path=public"} {
		require.Contains(t, dsn, part)
	}
}

func TestBuildPostgresDSNOverridesApplicationName(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "u", Name: "db", Options: map[string]string{"application_name": "ops"}})
	require.NoError(t, err)
	require.Contains(t, dsn, "application_name=ops")
	require.NotContains(t, dsn, "application_name=gatekeeper")
}

func TestBuildPostgresDSNPrefersExplicitDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{DSN: "postgres://x"})
	require.NoError(t, err)
	require.Equal(t, "postgres://x", dsn)
}

func TestBuildPostgresDSNRequiresUserAndName(t *testing.T) {
	_, err := buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildMySQLDSNDefaults(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "gatekeeper", Name: "directory"})
	require.NoError(t, err)
	require.Equal(t, "gatekeeper@tcp(127.0.0.1:3306)/directory?charset=utf8mb4&loc=Local&parseTime=True", dsn)
}

func TestBuildMySQLDSNWithOptions(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{
		User:     "user",
		Password: "secret",
		Name:     "db",
		Host:     "db.example.com",
		Port:     3307,
		Options:  map[string]string{"tls": "skip-verify"},
	})
	require.NoError(t, err)
	require.Contains(t, dsn, "user:secret@tcp(db.example.com:3307)/db?")
	require.Contains(t, dsn, "tls=skip-verify")
}

func TestBuildMySQLDSNRequiresUserAndName(t *testing.T) {
	_, err := buildMySQLDSN(Config{Host: "localhost"})
	require.ErrorContains(t, err, "mysql configuration requires user and database name")
}

func TestBuildMySQLDSNBracketsIPv6Hosts(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "u", Name: "db", Host: "::1"})
	require.NoError(t, err)
	require.Contains(t, dsn, "u@tcp([::1]:3306)/db?")
}

func TestMergeOptionsOverridesDefaultsInKeyOrder(t *testing.T) {
	require.Equal(t,
		[]string{"a=1", "b=override", "c=3"},
		mergeOptions(map[string]string{"b": "2", "c": "3"}, map[string]string{"a": "1", "b": "override"}),
	)
	require.Equal(t, []string{"x=y"}, mergeOptions(nil, map[string]string{"x": "y"}))
	require.Empty(t, mergeOptions(nil, nil))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.ErrorContains(t, err, "unsupported database driver")
}
