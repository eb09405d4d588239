package database

import (
	"fmt"
	"maps"
	"net"
	"slices"
	"strconv"
)

// endpoint is where a server-backed driver connects once defaults are applied.
type endpoint struct {
	host string
	port int
}

func (e endpoint) address() string {
	return net.JoinHostPort(e.host, strconv.Itoa(e.port))
}

// serverEndpoint checks the fields every server driver needs and fills the
// driver's default host and port.
func serverEndpoint(cfg Config, driver, host string, port int) (endpoint, error) {
	if cfg.User == "" || cfg.Name == "" {
		return endpoint{}, fmt.Errorf("%s configuration requires user and database name", driver)
	}
	e := endpoint{host: cfg.Host, port: cfg.Port}
	if e.host == "" {
		e.host = host
	}
	if e.port == 0 {
		e.port = port
	}
	return e, nil
}

// mergeOptions layers overrides on defaults and renders key=value pairs in
// key order so DSNs are stable.
func mergeOptions(defaults, overrides map[string]string) []string {
	merged := maps.Clone(defaults)
	if merged == nil {
		merged = make(map[string]string, len(overrides))
	}
	maps.Copy(merged, overrides)

	pairs := make([]string, 0, len(merged))
	for _, key := range slices.Sorted(maps.Keys(merged)) {
		pairs = append(pairs, key+"="+merged[key])
	}
	return pairs
}
