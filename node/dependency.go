package node

import (
	"fmt"
	"strings"

	"github.com/kbukum/microcosm/errors"
)

// DefaultDependencyVersion is used for a dependency declared without a version.
const DefaultDependencyVersion = "1.0"

const dependenciesField = "dependencies"

// Dependency is one declared downstream (service, version) pair.
type Dependency struct {
	Service string
	Version string
}

// String renders the dependency as "<service>:<version>".
func (d Dependency) String() string {
	return d.Service + ":" + d.Version
}

// Descriptor renders the dependency as "<service>[<version>]". It names a
// dependency in an error leaf when no address could be resolved for it.
func (d Dependency) Descriptor() string {
	return fmt.Sprintf("%s[%s]", d.Service, d.Version)
}

// ParseDependencies turns the raw "dependencies" value of a node document
// into an ordered declaration. Accepted shapes are nil, a comma separated
// string, or a list of strings. Each token is "service" or
// "service:version". Anything else is a CONFIGURATION_ERROR.
func ParseDependencies(raw any) ([]Dependency, error) {
	var tokens []string
	switch v := raw.(type) {
	case nil:
		return []Dependency{}, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return []Dependency{}, nil
		}
		tokens = strings.Split(v, ",")
	case []string:
		tokens = v
	case []any:
		tokens = make([]string, 0, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errors.Configuration(dependenciesField,
					fmt.Sprintf("entry %d must be a string, got %T", i, item))
			}
			tokens = append(tokens, s)
		}
	default:
		return nil, errors.Configuration(dependenciesField,
			fmt.Sprintf("must either be a list or comma-separated string, got %T", raw))
	}

	deps := make([]Dependency, 0, len(tokens))
	for _, tok := range tokens {
		d, err := parseDependency(tok)
		if err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, nil
}

func parseDependency(token string) (Dependency, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Dependency{}, errors.Configuration(dependenciesField, "empty dependency entry")
	}

	parts := strings.Split(token, ":")
	if len(parts) > 2 {
		return Dependency{}, errors.Configuration(dependenciesField,
			fmt.Sprintf("%q must be service[:version]", token))
	}

	d := Dependency{Service: strings.TrimSpace(parts[0]), Version: DefaultDependencyVersion}
	if d.Service == "" {
		return Dependency{}, errors.Configuration(dependenciesField,
			fmt.Sprintf("%q has no service name", token))
	}
	if len(parts) == 2 {
		d.Version = strings.TrimSpace(parts[1])
		if d.Version == "" {
			return Dependency{}, errors.Configuration(dependenciesField,
				fmt.Sprintf("%q has an empty version", token))
		}
	}
	return d, nil
}

// FormatDependencies joins the declaration for the node-depends-on line.
func FormatDependencies(deps []Dependency) string {
	parts := make([]string, len(deps))
	for i, d := range deps {
		parts[i] = d.String()
	}
	return strings.Join(parts, ", ")
}
