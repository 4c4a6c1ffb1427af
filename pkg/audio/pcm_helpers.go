package audio

import (
	"encoding/binary"
)

// PCMInt16ToLE serializes samples as little-endian 16-bit PCM.
func PCMInt16ToLE(samples []int16) []byte {
	buf := make([]byte, 0, 2*len(samples))
	for _, s := range samples {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(s))
	}
	return buf
}

// LEToPCMInt16 parses little-endian 16-bit PCM. A trailing odd byte is
// ignored.
func LEToPCMInt16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out
}
