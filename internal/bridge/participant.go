package bridge

import (
	"github.com/diamondburned/arikawa/v3/discord"
	"go.uber.org/zap"
)

// Participant is a Discord member bound to one voice SSRC.
type Participant struct {
	SSRC        uint32
	UserID      discord.UserID
	DisplayName string
	Nick        string
	// Callsign is empty when the nickname carries none.
	Callsign string
}

func (p Participant) fields() []zap.Field {
	return []zap.Field{
		zap.String("callsign", p.Callsign),
		zap.String("name", p.DisplayName),
		zap.Stringer("user_id", p.UserID),
		zap.Uint32("ssrc", p.SSRC),
	}
}

// Tick is one 20 ms window of voice activity: the decoded 48 kHz stereo
// frame of every SSRC that spoke. A nil frame marks an SSRC that is
// speaking but produced no decodable audio this tick.
type Tick map[uint32][]int16
