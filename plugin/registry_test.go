package plugin

import (
	"context"
	"errors"
	"testing"
)

type stubPlugin struct {
	name    string
	initErr error
	inits   int
	applied int
}

func (p *stubPlugin) Name() string { return p.name }

func (p *stubPlugin) OnInit(_ context.Context, _ interface{}) error {
	p.inits++
	return p.initErr
}

func (p *stubPlugin) OnTransactionApplied(_ context.Context, _ interface{}) error {
	p.applied++
	return nil
}

func TestRegisterRejectsDuplicateNames(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&stubPlugin{name: "audit"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register(&stubPlugin{name: "audit"}); err == nil {
		t.Error("expected error for duplicate plugin name")
	}

	names := r.Plugins()
	if len(names) != 1 || names[0] != "audit" {
		t.Errorf("Plugins: got %v, want [audit]", names)
	}
}

func TestEmitInitSurfacesFailure(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("init failed")
	if err := r.Register(&stubPlugin{name: "broken", initErr: boom}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := r.EmitInit(context.Background(), nil); !errors.Is(err, boom) {
		t.Errorf("expected init error to surface, got %v", err)
	}
}

func TestEmitDispatchesToSubscribersOnly(t *testing.T) {
	r := NewRegistry()
	p := &stubPlugin{name: "metrics"}
	if err := r.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	ctx := context.Background()
	r.EmitTransactionApplied(ctx, nil)
	r.EmitTransactionApplied(ctx, nil)
	// Hooks the plugin does not implement are skipped silently.
	r.EmitLowFuel(ctx, "tank_x", "10 L", "50 L")
	r.EmitTankDeactivated(ctx, "tank_x")

	if p.applied != 2 {
		t.Errorf("OnTransactionApplied calls: got %d, want 2", p.applied)
	}
}
