// Package validation checks configuration structs.
//
// Struct tag validation uses go-playground/validator and reports fields by
// their config key:
//
//	type DownstreamConfig struct {
//	    MaxConcurrency int `mapstructure:"max_concurrency" validate:"gte=1"`
//	}
//	err := validation.Validate(cfg)
//
// Cross-field rules are collected programmatically:
//
//	v := validation.New()
//	v.Check(cfg.Port > 0, "http_server.port", "must be positive")
//	err := v.Validate()
package validation
