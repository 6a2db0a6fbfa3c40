package platforms

import (
	"context"
	"fmt"
	"testing"

	"github.com/lepinkainen/multipass/pkg/social"
)

// stubPlatform satisfies social.Platform for registry tests.
type stubPlatform struct {
	id string
}

func (s *stubPlatform) PlatformName() string { return "stub" }
func (s *stubPlatform) PlatformID() string   { return s.id }
func (s *stubPlatform) Authenticate(ctx context.Context, creds social.Credentials) error {
	return nil
}
func (s *stubPlatform) Publish(ctx context.Context, content string, metadata map[string]string) error {
	return nil
}
func (s *stubPlatform) Fetch(ctx context.Context) ([]social.Post, error) { return nil, nil }
func (s *stubPlatform) PostURL(postID string) string                     { return "" }

func stubInfo(name string) *Info {
	return &Info{
		Name:        name,
		Description: "stub platform",
		Factory: func(account Account) (social.Platform, error) {
			if account.ID == "" {
				return nil, fmt.Errorf("account id is required")
			}
			return &stubPlatform{id: account.ID}, nil
		},
	}
}

func TestRegistryRegisterAndCreate(t *testing.T) {
	reg := NewRegistry()

	if err := reg.Register("stub", stubInfo("stub")); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := reg.Register("stub", stubInfo("stub")); err == nil {
		t.Error("duplicate registration should fail")
	}

	p, err := reg.Create(Account{ID: "acct-1", Platform: "stub"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if p.PlatformID() != "acct-1" {
		t.Errorf("factory got wrong account: %q", p.PlatformID())
	}

	if _, err := reg.Create(Account{ID: "x", Platform: "unknown"}); err == nil {
		t.Error("unknown platform should fail")
	}
	if _, err := reg.Create(Account{Platform: "stub"}); err == nil {
		t.Error("factory validation error should propagate")
	}
}

func TestRegistryList(t *testing.T) {
	reg := NewRegistry()
	if len(reg.List()) != 0 {
		t.Error("fresh registry should be empty")
	}

	_ = reg.Register("a", stubInfo("a"))
	_ = reg.Register("b", stubInfo("b"))

	names := reg.List()
	if len(names) != 2 {
		t.Fatalf("expected 2 platforms, got %v", names)
	}
	seen := map[string]bool{}
	for _, n := range names {
		seen[n] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Errorf("missing registered names: %v", names)
	}
}
