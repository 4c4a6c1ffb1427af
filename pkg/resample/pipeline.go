package resample

import (
	"github.com/Raikerian/go-discord-usrp/pkg/audio"
)

// Downsampler turns one 20 ms Discord frame (48 kHz interleaved stereo) into
// one USRP audio payload (8 kHz mono).
type Downsampler struct {
	sinc *Sinc
}

// NewDownsampler builds a 48 kHz to 8 kHz converter with DefaultParams.
func NewDownsampler() (*Downsampler, error) {
	s, err := NewSinc(audio.DiscordSampleRate, audio.USRPSampleRate, audio.DiscordFrameSize, DefaultParams)
	if err != nil {
		return nil, err
	}

	return &Downsampler{sinc: s}, nil
}

// Process downmixes and converts one frame. ok is false when the frame has
// the wrong size or the converter did not yield a full payload.
func (d *Downsampler) Process(stereo []int16) ([]int16, bool) {
	if len(stereo) != audio.DiscordFrameSize*audio.DiscordChannels {
		return nil, false
	}

	out, err := d.sinc.Process(DownmixStereo(stereo))
	if err != nil || len(out) != audio.USRPFrameSize {
		return nil, false
	}

	return FloatToPCM(out), true
}

// Upsampler turns one USRP audio payload into one 20 ms Discord frame.
type Upsampler struct {
	sinc *Sinc
}

// NewUpsampler builds an 8 kHz to 48 kHz converter with DefaultParams.
func NewUpsampler() (*Upsampler, error) {
	s, err := NewSinc(audio.USRPSampleRate, audio.DiscordSampleRate, audio.USRPFrameSize, DefaultParams)
	if err != nil {
		return nil, err
	}

	return &Upsampler{sinc: s}, nil
}

// Process converts one payload and duplicates it into both channels. ok is
// false when the payload has the wrong size or the converter did not yield a
// full frame.
func (u *Upsampler) Process(mono []int16) ([]int16, bool) {
	if len(mono) != audio.USRPFrameSize {
		return nil, false
	}

	out, err := u.sinc.Process(PCMToFloat(mono))
	if err != nil || len(out) != audio.DiscordFrameSize {
		return nil, false
	}

	return UpmixMono(FloatToPCM(out)), true
}
