package config

import (
	"errors"
	"net"
)

// BasicService is used as a simple base for wallet services like Pprof or
// Prometheus monitoring.
type BasicService struct {
	Enabled bool `yaml:"Enabled"`
	// Addresses holds the list of bind addresses in the form of "address:port".
	Addresses []string `yaml:"Addresses"`
}

// Validate checks bind addresses of an enabled service.
func (s BasicService) Validate() error {
	if !s.Enabled {
		return nil
	}
	if len(s.Addresses) == 0 {
		return errors.New("no addresses for enabled service")
	}
	for _, addr := range s.Addresses {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return err
		}
	}
	return nil
}
