package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diamondburned/arikawa/v3/discord"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockMemberSource struct {
	mock.Mock
}

func (m *mockMemberSource) Member(guildID discord.GuildID, userID discord.UserID) (*discord.Member, error) {
	args := m.Called(guildID, userID)
	member, _ := args.Get(0).(*discord.Member)

	return member, args.Error(1)
}

const testGuild = discord.GuildID(10)

func TestProfileFromMember(t *testing.T) {
	tests := map[string]struct {
		member discord.Member
		want   Profile
	}{
		"nick carries callsign": {
			member: discord.Member{
				User: discord.User{ID: 1, Username: "alice", DisplayName: "Alice"},
				Nick: "Alice ALC123X",
			},
			want: Profile{UserID: 1, Username: "alice", Nick: "Alice ALC123X", DisplayName: "Alice", Callsign: "ALC123X"},
		},
		"display name fallback": {
			member: discord.Member{
				User: discord.User{ID: 2, Username: "bob", DisplayName: "Bob W1AW"},
			},
			want: Profile{UserID: 2, Username: "bob", DisplayName: "Bob W1AW", Callsign: "W1AW"},
		},
		"username fallback": {
			member: discord.Member{
				User: discord.User{ID: 3, Username: "carol"},
			},
			want: Profile{UserID: 3, Username: "carol", DisplayName: "carol"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProfileFromMember(tt.member))
		})
	}
}

func TestResolverCachesProfiles(t *testing.T) {
	source := &mockMemberSource{}
	source.On("Member", testGuild, discord.UserID(1)).Return(&discord.Member{
		User: discord.User{ID: 1, Username: "alice"},
		Nick: "Alice ALC123X",
	}, nil).Once()

	r := NewResolver(source, NewProfileCache(8, time.Minute), zaptest.NewLogger(t))
	ctx := context.Background()

	for range 3 {
		p, err := r.Resolve(ctx, testGuild, 1)
		require.NoError(t, err)
		assert.Equal(t, "ALC123X", p.Callsign)
	}
	source.AssertExpectations(t)
}

func TestResolverForget(t *testing.T) {
	source := &mockMemberSource{}
	source.On("Member", testGuild, discord.UserID(1)).Return(&discord.Member{
		User: discord.User{ID: 1, Username: "alice"},
	}, nil).Twice()

	r := NewResolver(source, NewProfileCache(8, time.Minute), zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := r.Resolve(ctx, testGuild, 1)
	require.NoError(t, err)
	r.Forget(testGuild, 1)
	_, err = r.Resolve(ctx, testGuild, 1)
	require.NoError(t, err)

	source.AssertExpectations(t)
}

func TestResolverErrors(t *testing.T) {
	t.Run("lookup failure", func(t *testing.T) {
		boom := errors.New("unknown member")
		source := &mockMemberSource{}
		source.On("Member", testGuild, discord.UserID(5)).Return(nil, boom)

		r := NewResolver(source, NewProfileCache(8, time.Minute), zaptest.NewLogger(t))
		_, err := r.Resolve(context.Background(), testGuild, 5)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("canceled context skips lookup", func(t *testing.T) {
		source := &mockMemberSource{}
		r := NewResolver(source, NewProfileCache(8, time.Minute), zaptest.NewLogger(t))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := r.Resolve(ctx, testGuild, 5)
		assert.ErrorIs(t, err, context.Canceled)
		source.AssertNotCalled(t, "Member", mock.Anything, mock.Anything)
	})
}

func TestProfileCacheScopesByGuild(t *testing.T) {
	c := NewProfileCache(2, time.Minute)
	c.Add(1, Profile{UserID: 7, Callsign: "K1ABC"})

	_, ok := c.Get(2, 7)
	assert.False(t, ok)

	p, ok := c.Get(1, 7)
	require.True(t, ok)
	assert.Equal(t, "K1ABC", p.Callsign)

	c.Add(1, Profile{UserID: 8})
	c.Add(1, Profile{UserID: 9})
	assert.Equal(t, 2, c.Len())
	_, ok = c.Get(1, 7)
	assert.False(t, ok, "oldest entry is evicted")
}
