package audio

import (
	"errors"
	"fmt"
	"sync"

	"layeh.com/gopus"
)

// MaxOpusPacketSize bounds one encoded 20 ms frame.
const MaxOpusPacketSize = 4000

// ErrEmptyPayload is returned when decoding a packet without Opus data.
var ErrEmptyPayload = errors.New("opus payload empty")

// OpusDecoder turns Discord Opus packets into 48 kHz interleaved stereo PCM.
// Opus decoders carry state between frames, so use one per SSRC.
type OpusDecoder struct {
	mu  sync.Mutex
	dec *gopus.Decoder
}

// NewOpusDecoder creates a 48 kHz stereo decoder.
func NewOpusDecoder() (*OpusDecoder, error) {
	dec, err := gopus.NewDecoder(DiscordSampleRate, DiscordChannels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{dec: dec}, nil
}

// Decode returns one frame of interleaved stereo samples.
func (d *OpusDecoder) Decode(opus []byte) ([]int16, error) {
	if len(opus) == 0 {
		return nil, ErrEmptyPayload
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	pcm, err := d.dec.Decode(opus, DiscordFrameSize, false)
	if err != nil {
		return nil, fmt.Errorf("opus decode: %w", err)
	}

	return pcm, nil
}

// OpusEncoder turns 20 ms of 48 kHz interleaved stereo PCM into a
// Discord-ready Opus packet.
type OpusEncoder struct {
	mu  sync.Mutex
	enc *gopus.Encoder
}

// NewOpusEncoder creates a VoIP-tuned stereo encoder at bitrate bits/s.
func NewOpusEncoder(bitrate int) (*OpusEncoder, error) {
	enc, err := gopus.NewEncoder(DiscordSampleRate, DiscordChannels, gopus.Voip)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	if bitrate > 0 {
		enc.SetBitrate(bitrate)
	}

	return &OpusEncoder{enc: enc}, nil
}

// Encode encodes exactly one frame of DiscordFrameSize samples per channel.
func (e *OpusEncoder) Encode(pcm []int16) ([]byte, error) {
	if len(pcm) != DiscordFrameSize*DiscordChannels {
		return nil, fmt.Errorf("need %d samples, got %d", DiscordFrameSize*DiscordChannels, len(pcm))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	return e.enc.Encode(pcm, DiscordFrameSize, MaxOpusPacketSize)
}
