package token

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/osuosl/timesync/pkg/api"
	"github.com/osuosl/timesync/pkg/registry"
	"github.com/osuosl/timesync/pkg/storage/memory"
)

const testInstance = "timesync-test"

// fixture wires an issuer and verifier over in-memory collaborators with a
// controllable clock.
type fixture struct {
	issuer   *Issuer
	verifier *Verifier
	registry registry.Registry
	clock    time.Time
}

func newFixture(t *testing.T, maxAge time.Duration) *fixture {
	t.Helper()

	codec := NewCodec(testSecret)
	reg := registry.NewMemory()
	store := memory.New()

	if err := store.Users().Create(context.Background(), &api.User{Username: "sManager"}); err != nil {
		t.Fatalf("seeding user: %v", err)
	}

	f := &fixture{
		issuer:   NewIssuer(codec, reg, testInstance, maxAge),
		verifier: NewVerifier(codec, reg, store.Users(), testInstance, maxAge),
		registry: reg,
		clock:    time.Date(2015, 4, 1, 12, 0, 0, 0, time.UTC),
	}
	f.issuer.now = func() time.Time { return f.clock }
	f.verifier.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func TestIssueAndVerify(t *testing.T) {
	f := newFixture(t, 30*time.Minute)
	ctx := context.Background()

	tok, err := f.issuer.Issue(ctx, "sManager")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	ok, err := f.registry.Exists(ctx, tok)
	if err != nil || !ok {
		t.Fatalf("issued token not registered: ok=%v err=%v", ok, err)
	}

	u, err := f.verifier.Verify(ctx, tok)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if u.Username != "sManager" {
		t.Errorf("Username = %q, want sManager", u.Username)
	}
}

func TestVerify_UnregisteredToken(t *testing.T) {
	f := newFixture(t, 30*time.Minute)
	ctx := context.Background()

	// A structurally perfect token that was never registered.
	codec := NewCodec(testSecret)
	other := NewIssuer(codec, registry.NewMemory(), testInstance, 30*time.Minute)
	other.now = func() time.Time { return f.clock }
	tok, err := other.Issue(ctx, "sManager")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	_, err = f.verifier.Verify(ctx, tok)
	assertBadToken(t, err)
}

func TestVerify_RevokedToken(t *testing.T) {
	f := newFixture(t, 30*time.Minute)
	ctx := context.Background()

	tok, _ := f.issuer.Issue(ctx, "sManager")
	if err := f.registry.Revoke(ctx, tok); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	_, err := f.verifier.Verify(ctx, tok)
	assertBadToken(t, err)
}

func TestVerify_Expired(t *testing.T) {
	f := newFixture(t, 30*time.Minute)
	ctx := context.Background()

	tok, _ := f.issuer.Issue(ctx, "sManager")

	f.advance(29 * time.Minute)
	if _, err := f.verifier.Verify(ctx, tok); err != nil {
		t.Fatalf("Verify before expiry: %v", err)
	}

	f.advance(2 * time.Minute)
	_, err := f.verifier.Verify(ctx, tok)
	assertBadToken(t, err)
}

func TestVerify_MaxAgeTighterThanExpiry(t *testing.T) {
	// A token minted with a long expiry still dies at the verifier's
	// issued-at + max-age bound.
	f := newFixture(t, 30*time.Minute)
	ctx := context.Background()

	f.issuer.maxAge = 2 * time.Hour
	tok, _ := f.issuer.Issue(ctx, "sManager")

	f.advance(45 * time.Minute)
	_, err := f.verifier.Verify(ctx, tok)
	assertBadToken(t, err)
}

func TestVerify_WrongIssuer(t *testing.T) {
	f := newFixture(t, 30*time.Minute)
	ctx := context.Background()

	other := NewIssuer(NewCodec(testSecret), f.registry, "other-instance", 30*time.Minute)
	other.now = func() time.Time { return f.clock }
	tok, _ := other.Issue(ctx, "sManager")

	_, err := f.verifier.Verify(ctx, tok)
	assertBadToken(t, err)
}

func TestVerify_UnknownSubject(t *testing.T) {
	f := newFixture(t, 30*time.Minute)
	ctx := context.Background()

	tok, _ := f.issuer.Issue(ctx, "ghost")

	// Unknown users get the exact same message as a bad signature.
	_, err := f.verifier.Verify(ctx, tok)
	assertBadToken(t, err)
}

func TestVerify_WhitespaceNormalization(t *testing.T) {
	f := newFixture(t, 30*time.Minute)
	ctx := context.Background()

	var tok string
	// Standard base64 output includes '+' often enough that a few retries
	// at different timestamps always find one.
	for i := 0; i < 100; i++ {
		var err error
		tok, err = f.issuer.Issue(ctx, "sManager")
		if err != nil {
			t.Fatalf("Issue: %v", err)
		}
		if strings.Contains(tok, "+") {
			break
		}
		f.advance(time.Second)
	}
	if !strings.Contains(tok, "+") {
		t.Skip("no '+' in any generated token")
	}

	mangled := strings.ReplaceAll(tok, "+", " ")
	u, err := f.verifier.Verify(ctx, mangled)
	if err != nil {
		t.Fatalf("Verify with spaces for '+': %v", err)
	}
	if u.Username != "sManager" {
		t.Errorf("Username = %q", u.Username)
	}
}

func TestIssue_DistinctTokensPerLogin(t *testing.T) {
	f := newFixture(t, 30*time.Minute)
	ctx := context.Background()

	tok1, err := f.issuer.Issue(ctx, "sManager")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	f.advance(time.Second)
	tok2, err := f.issuer.Issue(ctx, "sManager")
	if err != nil {
		t.Fatalf("second Issue: %v", err)
	}

	if tok1 == tok2 {
		t.Fatal("two logins produced the same token string")
	}

	// Both verify independently.
	for _, tok := range []string{tok1, tok2} {
		if _, err := f.verifier.Verify(ctx, tok); err != nil {
			t.Errorf("Verify(%q...): %v", tok[:16], err)
		}
	}

	// Revoking one leaves the other valid.
	if err := f.registry.Revoke(ctx, tok1); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	_, err = f.verifier.Verify(ctx, tok1)
	assertBadToken(t, err)
	if _, err := f.verifier.Verify(ctx, tok2); err != nil {
		t.Errorf("Verify(tok2) after revoking tok1: %v", err)
	}
}

func TestIssue_DuplicateRegistrationRejected(t *testing.T) {
	f := newFixture(t, 30*time.Minute)
	ctx := context.Background()

	// With a frozen clock, the second Issue computes the identical token
	// string; the registry rejects the duplicate instead of overwriting.
	if _, err := f.issuer.Issue(ctx, "sManager"); err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err := f.issuer.Issue(ctx, "sManager")
	if !errors.Is(err, registry.ErrDuplicateToken) {
		t.Errorf("duplicate Issue = %v, want ErrDuplicateToken", err)
	}
}

// assertBadToken checks that err is the uniform token failure envelope.
func assertBadToken(t *testing.T, err error) {
	t.Helper()

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *api.Error", err)
	}
	if apiErr.Text != "Bad API token" || apiErr.Status != 401 {
		t.Fatalf("err = %+v, want 401 Bad API token", apiErr)
	}
}
