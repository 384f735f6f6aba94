package static

import (
	"context"
	"errors"
	"testing"

	"github.com/kbukum/microcosm/discovery"
)

func TestStaticEndpoints(t *testing.T) {
	p := NewProvider([]discovery.StaticEndpoint{
		{Name: "B", Version: "1.0", Address: "10.0.0.2", Port: 5001},
		{Name: "B", Version: "1.1", Address: "10.0.0.3", Port: 5001, Scheme: "https"},
	})

	list, err := p.Discover(context.Background(), "B")
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 instances, got %d", len(list))
	}
	if list[1].URL() != "https://10.0.0.3:5001" || list[0].Version != "1.0" {
		t.Errorf("unexpected instances %+v", list)
	}
	if p.Stats().RegisteredServices != 0 {
		t.Error("configured endpoints are not registrations")
	}
}

func TestRegisterDeregister(t *testing.T) {
	p := NewProvider(nil)
	ctx := context.Background()

	if err := p.Register(ctx, &discovery.ServiceInfo{ID: "A-1", Name: "A", Version: "1.0", Address: "h", Port: 1}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if p.Stats().RegisteredServices != 1 {
		t.Errorf("expected 1 registration, got %d", p.Stats().RegisteredServices)
	}
	if _, err := p.Discover(ctx, "A"); err != nil {
		t.Fatalf("expected self to be discoverable: %v", err)
	}

	_ = p.Deregister(ctx, "A-1")
	if _, err := p.Discover(ctx, "A"); !errors.Is(err, discovery.ErrServiceNotFound) {
		t.Errorf("expected ErrServiceNotFound after deregister, got %v", err)
	}
}

func TestRegisterRequiresIdentity(t *testing.T) {
	if err := NewProvider(nil).Register(context.Background(), &discovery.ServiceInfo{}); err == nil {
		t.Error("expected error for empty registration")
	}
}
