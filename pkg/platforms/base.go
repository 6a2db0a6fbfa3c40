package platforms

import (
	"log/slog"

	"github.com/lepinkainen/multipass/pkg/social"
)

// RegisterPlatform registers a platform family with the default registry.
// Called from adapter packages' init().
func RegisterPlatform(name string, info *Info) {
	if err := DefaultRegistry.Register(name, info); err != nil {
		slog.Warn("Failed to register platform", "platform", name, "error", err)
	} else {
		slog.Debug("Registered platform", "platform", name, "description", info.Description)
	}
}

// ListPlatforms lists all platform families in the default registry.
func ListPlatforms() []string {
	return DefaultRegistry.List()
}

// CreatePlatform instantiates an adapter from the default registry.
func CreatePlatform(account Account) (social.Platform, error) {
	return DefaultRegistry.Create(account)
}
