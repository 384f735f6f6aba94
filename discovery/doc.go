// Package discovery registers a node with a service registry and resolves
// the nodes it depends on.
//
// Resolution is version aware: Client.Resolve keeps healthy instances whose
// version is compatible with the requested one (same major version, not
// older) and round-robins among them.
//
// # Backends
//
//   - discovery/consul: HashiCorp Consul agent registration and health queries
//   - discovery/static: in-memory endpoints from config plus self-registration
package discovery
