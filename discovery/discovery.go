package discovery

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"
)

// Common discovery errors.
var (
	ErrServiceNotFound     = errors.New("service not found")
	ErrNoHealthyEndpoints  = errors.New("no healthy endpoints found")
	ErrNoCompatibleVersion = errors.New("no compatible version found")
)

// Metadata keys written on registration and read back on discovery.
const (
	MetaVersion = "version"
	MetaScheme  = "scheme"
	MetaAddress = "address"
)

// ServiceInstance represents a discovered service endpoint.
type ServiceInstance struct {
	ID       string
	Name     string
	Version  string
	Address  string
	Port     int
	Scheme   string
	Tags     []string
	Metadata map[string]string
	Health   HealthStatus
	LastSeen time.Time
}

// URL returns the instance's base URL, e.g. "http://10.0.0.7:5000".
func (s ServiceInstance) URL() string {
	scheme := s.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return scheme + "://" + net.JoinHostPort(s.Address, strconv.Itoa(s.Port))
}

// HealthStatus represents endpoint health.
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// Discovery defines the contract for discovering service instances.
type Discovery interface {
	// Discover returns the known instances of the named service.
	Discover(ctx context.Context, serviceName string) ([]ServiceInstance, error)

	// Close releases any resources held by the discovery client.
	Close() error
}
