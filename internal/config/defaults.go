package config

import "time"

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "myuser",
	Pass: "mypassword",
	Name: "dispatch_db",
}

var defaultDispatch = Dispatch{
	RadiusMeters:        0, // required, no default
	RebroadcastInterval: 0, // disabled
	PageTokenTTL:        time.Hour,
	TokenSecret:         "",
	CodeLength:          5,
}

var defaultPprof = PprofConfig{
	Enabled: false,
	Addr:    "127.0.0.1:6060",
}

var defaultRateLimit = RateLimit{
	Enabled:    false,
	Rate:       20,
	Burst:      40,
	TTL:        10 * time.Minute,
	MaxBuckets: 10000,
}

// DefaultPort returns the default port.
func DefaultPort() int {
	return defaultPort
}

// DefaultDB returns the default database settings.
func DefaultDB() DB {
	return defaultDB
}

// DefaultDispatch returns the default dispatch settings.
func DefaultDispatch() Dispatch {
	return defaultDispatch
}

// DefaultPprof returns the default pprof server settings.
func DefaultPprof() PprofConfig {
	return defaultPprof
}

// DefaultRateLimit returns the default rate limit settings.
func DefaultRateLimit() RateLimit {
	return defaultRateLimit
}
