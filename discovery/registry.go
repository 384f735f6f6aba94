package discovery

import (
	"context"
	"fmt"
	"time"
)

// ServiceInfo is the record a node registers for itself: its service name
// and version, the address other nodes call, and free-form metadata.
type ServiceInfo struct {
	ID       string
	Name     string
	Version  string
	Address  string
	Port     int
	Scheme   string
	Tags     []string
	Metadata map[string]string
}

// Validate reports a registration no backend could resolve later.
func (s *ServiceInfo) Validate() error {
	switch {
	case s == nil:
		return fmt.Errorf("registration is nil")
	case s.ID == "" || s.Name == "":
		return fmt.Errorf("registration needs an id and a name")
	case s.Version == "":
		return fmt.Errorf("registration %s needs a version", s.ID)
	case s.Port < 0 || s.Port > 65535:
		return fmt.Errorf("registration %s has invalid port %d", s.ID, s.Port)
	}
	return nil
}

// Instance is the instance other nodes discover for this registration.
// An empty scheme becomes http.
func (s *ServiceInfo) Instance(seen time.Time) ServiceInstance {
	scheme := s.Scheme
	if scheme == "" {
		scheme = "http"
	}
	return ServiceInstance{
		ID:       s.ID,
		Name:     s.Name,
		Version:  s.Version,
		Address:  s.Address,
		Port:     s.Port,
		Scheme:   scheme,
		Tags:     s.Tags,
		Metadata: s.Metadata,
		Health:   HealthHealthy,
		LastSeen: seen,
	}
}

// Registry announces this node to a discovery backend.
type Registry interface {
	Register(ctx context.Context, service *ServiceInfo) error
	Deregister(ctx context.Context, serviceID string) error

	// Stats reports the registrations this process currently holds.
	Stats() RegistryStats

	Close() error
}

// RegistryStats counts what a Registry holds for the process.
type RegistryStats struct {
	RegisteredServices int
	LastHeartbeat      time.Time
}
