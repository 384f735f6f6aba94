package discovery

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	"github.com/kbukum/microcosm/logger"
)

// LoadBalancingStrategy defines how to select among compatible instances.
type LoadBalancingStrategy string

const (
	StrategyRoundRobin LoadBalancingStrategy = "round_robin"
	StrategyRandom     LoadBalancingStrategy = "random"
)

// ClientConfig configures the discovery Client.
type ClientConfig struct {
	// CacheTTL is how long discovered instances are cached. Negative disables.
	CacheTTL time.Duration

	// Strategy selects among compatible instances. Default: round robin.
	Strategy LoadBalancingStrategy
}

// Client adds caching, version matching and load balancing on top of a
// Discovery backend.
type Client struct {
	discovery Discovery
	cache     *instanceCache
	cfg       ClientConfig
	log       *logger.Logger
	mu        sync.Mutex
	rrIndex   map[string]int
}

// NewClient creates a Client that wraps the given Discovery backend.
func NewClient(disc Discovery, cfg ClientConfig, log *logger.Logger) *Client {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyRoundRobin
	}
	return &Client{
		discovery: disc,
		cache:     newInstanceCache(cfg.CacheTTL),
		cfg:       cfg,
		log:       log,
		rrIndex:   make(map[string]int),
	}
}

// Discover returns all instances of a service, using cache when fresh.
func (c *Client) Discover(ctx context.Context, serviceName string) ([]ServiceInstance, error) {
	if instances := c.cache.get(serviceName); instances != nil {
		return instances, nil
	}

	instances, err := c.discovery.Discover(ctx, serviceName)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, serviceName)
	}

	c.cache.set(serviceName, instances)
	return instances, nil
}

// Resolve returns one healthy instance of serviceName whose version is
// compatible with version. Among several candidates the configured
// strategy decides.
func (c *Client) Resolve(ctx context.Context, serviceName, version string) (ServiceInstance, error) {
	instances, err := c.Discover(ctx, serviceName)
	if err != nil {
		return ServiceInstance{}, err
	}

	candidates := make([]ServiceInstance, 0, len(instances))
	healthy := 0
	for _, inst := range instances {
		if inst.Health == HealthUnhealthy {
			continue
		}
		healthy++
		if Compatible(version, inst.Version) {
			candidates = append(candidates, inst)
		}
	}
	if healthy == 0 {
		return ServiceInstance{}, fmt.Errorf("%w: %s", ErrNoHealthyEndpoints, serviceName)
	}
	if len(candidates) == 0 {
		return ServiceInstance{}, fmt.Errorf("%w: %s[%s]", ErrNoCompatibleVersion, serviceName, version)
	}

	inst := c.pick(serviceName+"@"+version, candidates)
	c.log.Debug("resolved dependency", logger.Fields(
		logger.FieldService, serviceName,
		"version", version,
		logger.FieldAddress, inst.URL(),
	))
	return inst, nil
}

func (c *Client) pick(key string, candidates []ServiceInstance) ServiceInstance {
	if len(candidates) == 1 {
		return candidates[0]
	}
	if c.cfg.Strategy == StrategyRandom {
		return candidates[rand.IntN(len(candidates))]
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.rrIndex[key]
	c.rrIndex[key] = (idx + 1) % len(candidates)
	return candidates[idx%len(candidates)]
}

// Invalidate clears cached entries for a service.
func (c *Client) Invalidate(serviceName string) {
	c.cache.invalidate(serviceName)
}

// Close releases resources.
func (c *Client) Close() error {
	c.cache.clear()
	return c.discovery.Close()
}

// Compatible reports whether an instance at version have satisfies a
// request for version want. Semantic versions ("1", "1.2", "v1.2.3") are
// compatible when the major versions match and have is not older than
// want. Anything else must match exactly.
func Compatible(want, have string) bool {
	w, h := canonical(want), canonical(have)
	if !semver.IsValid(w) || !semver.IsValid(h) {
		return want == have
	}
	return semver.Major(w) == semver.Major(h) && semver.Compare(h, w) >= 0
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}

// --- instance cache ---

type instanceCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	instances []ServiceInstance
	expiry    time.Time
}

func newInstanceCache(ttl time.Duration) *instanceCache {
	return &instanceCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

func (c *instanceCache) get(serviceName string) []ServiceInstance {
	if c.ttl <= 0 {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[serviceName]
	if !ok || time.Now().After(entry.expiry) {
		return nil
	}
	return entry.instances
}

func (c *instanceCache) set(serviceName string, instances []ServiceInstance) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[serviceName] = cacheEntry{
		instances: instances,
		expiry:    time.Now().Add(c.ttl),
	}
}

func (c *instanceCache) invalidate(serviceName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, serviceName)
}

func (c *instanceCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
