package identity

import (
	"github.com/diamondburned/arikawa/v3/state"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Raikerian/go-discord-usrp/internal/config"
)

// Module provides the profile cache and the member resolver.
var Module = fx.Module("identity",
	fx.Provide(
		NewProfileCacheProvider,
		NewResolverProvider,
	),
)

// NewProfileCacheProvider creates a ProfileCache with config-derived size and TTL.
func NewProfileCacheProvider(cfg *config.Config, logger *zap.Logger) *ProfileCache {
	size := cfg.Bridge.IdentityCacheSize
	if size <= 0 {
		logger.Warn("Bridge IdentityCacheSize is not configured or is invalid, defaulting to 256",
			zap.Int("configuredSize", size))
		size = 256
	}
	ttl := cfg.Bridge.IdentityCacheTTL
	logger.Info("Creating ProfileCache", zap.Int("size", size), zap.Duration("ttl", ttl))

	return NewProfileCache(size, ttl)
}

// NewResolverProvider creates a Resolver backed by the gateway state, which
// serves members from its cache and falls back to the REST API.
func NewResolverProvider(st *state.State, cache *ProfileCache, logger *zap.Logger) *Resolver {
	return NewResolver(st, cache, logger.Named("identity"))
}
