package voice

import (
	"github.com/diamondburned/arikawa/v3/voice/udp"
)

// AudioPacket is one Opus frame received from the voice channel.
type AudioPacket struct {
	SSRC         uint32
	Opus         []byte
	RTPTimestamp uint32
	Sequence     uint16
}

// NewAudioPacket copies the fields the bridge needs out of a voice UDP packet.
// The Opus payload is copied since arikawa reuses its read buffer.
func NewAudioPacket(packet *udp.Packet) AudioPacket {
	return AudioPacket{
		SSRC:         packet.SSRC(),
		Opus:         append([]byte(nil), packet.Opus...),
		RTPTimestamp: packet.Timestamp(),
		Sequence:     packet.Sequence(),
	}
}
