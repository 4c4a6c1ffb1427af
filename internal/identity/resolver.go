package identity

import (
	"context"
	"fmt"

	"github.com/diamondburned/arikawa/v3/discord"
	"go.uber.org/zap"
)

// Profile is what the bridge knows about a member.
type Profile struct {
	UserID      discord.UserID
	Username    string
	Nick        string
	DisplayName string
	// Callsign is empty when the member's name carries none.
	Callsign string
}

// ProfileFromMember derives a profile. The callsign is taken from the guild
// nickname, falling back to the global display name and then the username.
func ProfileFromMember(m discord.Member) Profile {
	display := m.User.DisplayName
	if display == "" {
		display = m.User.Username
	}

	source := m.Nick
	if source == "" {
		source = display
	}
	callsign, _ := ExtractCallsign(source)

	return Profile{
		UserID:      m.User.ID,
		Username:    m.User.Username,
		Nick:        m.Nick,
		DisplayName: display,
		Callsign:    callsign,
	}
}

// MemberSource looks up guild members. *state.State satisfies it.
type MemberSource interface {
	Member(guildID discord.GuildID, userID discord.UserID) (*discord.Member, error)
}

// Resolver turns user IDs into profiles, caching the results.
type Resolver struct {
	source MemberSource
	cache  *ProfileCache
	logger *zap.Logger
}

// NewResolver creates a Resolver.
func NewResolver(source MemberSource, cache *ProfileCache, logger *zap.Logger) *Resolver {
	return &Resolver{
		source: source,
		cache:  cache,
		logger: logger,
	}
}

// Resolve returns the profile of userID in guildID.
func (r *Resolver) Resolve(ctx context.Context, guildID discord.GuildID, userID discord.UserID) (Profile, error) {
	if p, ok := r.cache.Get(guildID, userID); ok {
		return p, nil
	}
	if err := ctx.Err(); err != nil {
		return Profile{}, err
	}

	m, err := r.source.Member(guildID, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("failed to look up member %s: %w", userID, err)
	}

	p := ProfileFromMember(*m)
	r.cache.Add(guildID, p)

	r.logger.Debug("Resolved member profile",
		zap.Stringer("user_id", userID),
		zap.String("callsign", p.Callsign))

	return p, nil
}

// Forget drops any cached profile for userID.
func (r *Resolver) Forget(guildID discord.GuildID, userID discord.UserID) {
	r.cache.Remove(guildID, userID)
}
