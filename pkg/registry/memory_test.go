package registry

import (
	"context"
	"testing"
	"time"
)

func TestMemoryRegistry_Lifecycle(t *testing.T) {
	reg := NewMemory()
	ctx := context.Background()

	now := time.Date(2015, 4, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	if err := reg.Register(ctx, "tok", 30*time.Minute); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Register(ctx, "tok", 30*time.Minute); err != ErrDuplicateToken {
		t.Errorf("duplicate Register = %v, want ErrDuplicateToken", err)
	}

	ok, _ := reg.Exists(ctx, "tok")
	if !ok {
		t.Error("Exists = false, want true")
	}

	// Advance past the TTL: the entry silently disappears.
	now = now.Add(31 * time.Minute)
	ok, _ = reg.Exists(ctx, "tok")
	if ok {
		t.Error("Exists = true after TTL, want false")
	}

	// An expired slot can be re-registered.
	if err := reg.Register(ctx, "tok", time.Minute); err != nil {
		t.Errorf("Register after expiry: %v", err)
	}
}

func TestMemoryRegistry_Revoke(t *testing.T) {
	reg := NewMemory()
	ctx := context.Background()

	if err := reg.Register(ctx, "tok", time.Minute); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := reg.Revoke(ctx, "tok"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if ok, _ := reg.Exists(ctx, "tok"); ok {
		t.Error("Exists = true after Revoke, want false")
	}
}
