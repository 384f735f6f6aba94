package bootstrap

import (
	"github.com/kbukum/microcosm/config"
)

// Config is the interface constraint for node configuration types.
// Any struct that embeds config.ServiceConfig (value embedding) and
// defines its own ApplyDefaults and Validate satisfies it.
//
//	type Config struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    HTTPServer server.Config `yaml:"http_server" mapstructure:"http_server"`
//	}
type Config interface {
	GetServiceConfig() *config.ServiceConfig
	ApplyDefaults()
	Validate() error
}
