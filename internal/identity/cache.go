package identity

import (
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type profileKey struct {
	guild discord.GuildID
	user  discord.UserID
}

// ProfileCache holds recently resolved profiles. Entries expire so nickname
// changes are eventually picked up.
type ProfileCache struct {
	lru *expirable.LRU[profileKey, Profile]
}

// NewProfileCache creates a cache holding at most size profiles for ttl.
func NewProfileCache(size int, ttl time.Duration) *ProfileCache {
	return &ProfileCache{
		lru: expirable.NewLRU[profileKey, Profile](size, nil, ttl),
	}
}

// Get looks up a cached profile.
func (c *ProfileCache) Get(guildID discord.GuildID, userID discord.UserID) (Profile, bool) {
	return c.lru.Get(profileKey{guildID, userID})
}

// Add stores a profile.
func (c *ProfileCache) Add(guildID discord.GuildID, p Profile) {
	c.lru.Add(profileKey{guildID, p.UserID}, p)
}

// Remove drops a cached profile.
func (c *ProfileCache) Remove(guildID discord.GuildID, userID discord.UserID) {
	c.lru.Remove(profileKey{guildID, userID})
}

// Len returns the number of cached profiles.
func (c *ProfileCache) Len() int {
	return c.lru.Len()
}
