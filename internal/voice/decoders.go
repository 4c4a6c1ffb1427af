package voice

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Raikerian/go-discord-usrp/pkg/audio"
)

// DecoderPool keeps one Opus decoder per SSRC. The least recently heard
// SSRC is evicted when the pool is full.
type DecoderPool struct {
	cache *lru.Cache[uint32, *audio.OpusDecoder]
}

// NewDecoderPool creates a pool holding at most size decoders.
func NewDecoderPool(size int) (*DecoderPool, error) {
	cache, err := lru.New[uint32, *audio.OpusDecoder](size)
	if err != nil {
		return nil, err
	}

	return &DecoderPool{cache: cache}, nil
}

// Decode decodes one packet with the decoder of its SSRC, creating the
// decoder on first use. Not safe for concurrent use with the same SSRC.
func (p *DecoderPool) Decode(ssrc uint32, opus []byte) ([]int16, error) {
	dec, ok := p.cache.Get(ssrc)
	if !ok {
		var err error
		if dec, err = audio.NewOpusDecoder(); err != nil {
			return nil, err
		}
		p.cache.Add(ssrc, dec)
	}

	return dec.Decode(opus)
}

// Remove drops the decoder of ssrc.
func (p *DecoderPool) Remove(ssrc uint32) {
	p.cache.Remove(ssrc)
}

// Len returns the number of live decoders.
func (p *DecoderPool) Len() int {
	return p.cache.Len()
}
