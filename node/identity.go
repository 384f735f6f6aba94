package node

import (
	"fmt"
	"net"
	"strconv"
)

// Identity is the (service, version, address) triple of a running node.
type Identity struct {
	Service string
	Version string
	Address string
}

// NewIdentity builds an Identity whose address is http://host:port.
func NewIdentity(service, version, host string, port int) Identity {
	return Identity{
		Service: service,
		Version: version,
		Address: "http://" + net.JoinHostPort(host, strconv.Itoa(port)),
	}
}

// ID renders the identity as "<service>[<version>, <address>]".
func (i Identity) ID() string {
	return fmt.Sprintf("%s[%s, %s]", i.Service, i.Version, i.Address)
}

// String implements fmt.Stringer.
func (i Identity) String() string { return i.ID() }
