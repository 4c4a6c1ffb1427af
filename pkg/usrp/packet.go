// Package usrp implements the USRP datagram protocol used to interconnect
// analog radio repeaters and gateways: the packet codec and a UDP client.
package usrp

import (
	"encoding/binary"
)

// Wire layout constants.
const (
	HeaderSize      = 32
	StartPacketSize = 352
	MaxDatagramSize = 1024

	typeAudio uint32 = 0
	typeStart uint32 = 2

	// typeStartSwapped is the start discriminant as it appears when read
	// big-endian after being written little-endian.
	typeStartSwapped uint32 = 0x02000000
)

var magic = [4]byte{'U', 'S', 'R', 'P'}

// startMetadata is the fixed payload carried by every start packet.
var startMetadata = [...]byte{
	0x08, 0x14, 0x1F, 0xC2, 0x39, 0x0C, 0x67, 0xDE, 0x45, 0x00, 0x00,
	0x07, 0x02, 0x00, 0x32, 0x30, 0x38, 0x31, 0x33, 0x33, 0x37,
}

// Packet is one USRP datagram. The concrete types are StartPacket,
// AudioPacket, EndPacket and UnknownPacket.
type Packet interface {
	// Encode returns the byte-exact wire form of the packet.
	Encode() []byte
	// Kind names the packet type for logs and metrics.
	Kind() string

	isPacket()
}

// StartPacket keys up the remote transmitter.
type StartPacket struct {
	Sequence uint32
}

// AudioPacket carries 8 kHz mono PCM.
type AudioPacket struct {
	Sequence uint32
	Transmit bool
	Samples  []int16
}

// EndPacket unkeys the remote transmitter. On the wire it is an audio packet
// without samples.
type EndPacket struct {
	Sequence uint32
}

// UnknownPacket holds a datagram that could not be recognized.
type UnknownPacket struct {
	Raw []byte
}

func (StartPacket) isPacket()   {}
func (AudioPacket) isPacket()   {}
func (EndPacket) isPacket()     {}
func (UnknownPacket) isPacket() {}

func (StartPacket) Kind() string   { return "start" }
func (AudioPacket) Kind() string   { return "audio" }
func (EndPacket) Kind() string     { return "end" }
func (UnknownPacket) Kind() string { return "unknown" }

// Encode implements Packet.
func (p StartPacket) Encode() []byte {
	buf := make([]byte, StartPacketSize)
	copy(buf[0:4], magic[:])
	binary.BigEndian.PutUint32(buf[4:8], p.Sequence)
	binary.LittleEndian.PutUint32(buf[20:24], typeStart)
	copy(buf[HeaderSize:], startMetadata[:])

	return buf
}

// Encode implements Packet.
func (p AudioPacket) Encode() []byte {
	buf := make([]byte, HeaderSize+2*len(p.Samples))
	copy(buf[0:4], magic[:])
	binary.BigEndian.PutUint32(buf[4:8], p.Sequence)
	binary.BigEndian.PutUint32(buf[8:12], 2)
	if p.Transmit {
		binary.BigEndian.PutUint32(buf[12:16], 1)
	}
	binary.BigEndian.PutUint32(buf[16:20], 7)
	binary.LittleEndian.PutUint32(buf[20:24], typeAudio)
	binary.BigEndian.PutUint32(buf[24:28], 0)

	for i, s := range p.Samples {
		binary.LittleEndian.PutUint16(buf[HeaderSize+2*i:], uint16(s))
	}

	return buf
}

// Encode implements Packet.
func (p EndPacket) Encode() []byte {
	return AudioPacket{Sequence: p.Sequence}.Encode()
}

// Encode implements Packet.
func (p UnknownPacket) Encode() []byte {
	return append([]byte(nil), p.Raw...)
}

// Decode parses a datagram. It never fails: anything it does not recognize
// comes back as an UnknownPacket holding a copy of b.
func Decode(b []byte) Packet {
	if len(b) < HeaderSize || [4]byte(b[0:4]) != magic {
		return UnknownPacket{Raw: append([]byte(nil), b...)}
	}

	seq := binary.BigEndian.Uint32(b[4:8])

	switch binary.BigEndian.Uint32(b[20:24]) {
	case typeStart, typeStartSwapped:
		return StartPacket{Sequence: seq}
	case typeAudio:
		payload := b[HeaderSize:]
		n := len(payload) / 2
		if n == 0 {
			return EndPacket{Sequence: seq}
		}

		samples := make([]int16, n)
		for i := range samples {
			samples[i] = int16(binary.LittleEndian.Uint16(payload[2*i:]))
		}

		return AudioPacket{
			Sequence: seq,
			Transmit: binary.BigEndian.Uint32(b[12:16]) == 1,
			Samples:  samples,
		}
	default:
		return UnknownPacket{Raw: append([]byte(nil), b...)}
	}
}
