// Package config loads node configuration files.
//
// Load reads a YAML document with Viper, merges an optional .env file via
// godotenv, and lets MICROCOSM_ prefixed environment variables override
// file values using underscore-separated paths
// (e.g. MICROCOSM_HTTP_SERVER_PORT=6000).
//
// # Usage
//
//	var cfg node.Config
//	if err := config.Load("a.yml", &cfg); err != nil { ... }
package config
