// Package chunkstream reassembles files streamed from hardware recorders as
// framed packets. The device emits fixed-header frames that may arrive
// duplicated or out of order; the assembler restores the byte stream,
// tolerates corrupt frames, and grants flow-control credits back to the
// sender.
package chunkstream

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// HeaderSize is the fixed frame header: u32 sequence, u16 payload
	// length, u16 CRC, all little endian.
	HeaderSize = 8

	// MaxPayload is the largest payload the device puts in one frame.
	MaxPayload = 236
)

// ErrShortFrame reports a frame smaller than its fixed header.
var ErrShortFrame = errors.New("chunkstream: frame shorter than header")

// Frame is one parsed packet from the device.
type Frame struct {
	Seq     uint32
	CRC     uint16
	Payload []byte
}

// EOF reports whether this is the device's end-of-file marker: a frame with
// zero payload length and zero CRC.
func (f Frame) EOF() bool { return len(f.Payload) == 0 && f.CRC == 0 }

// ParseFrame decodes a single frame from raw bytes. The payload slice aliases
// the input.
func ParseFrame(data []byte) (Frame, error) {
	if len(data) < HeaderSize {
		return Frame{}, ErrShortFrame
	}
	length := int(binary.LittleEndian.Uint16(data[4:6]))
	if length > len(data)-HeaderSize {
		return Frame{}, fmt.Errorf("chunkstream: payload length %d exceeds frame of %d bytes", length, len(data))
	}
	return Frame{
		Seq:     binary.LittleEndian.Uint32(data[0:4]),
		CRC:     binary.LittleEndian.Uint16(data[6:8]),
		Payload: data[HeaderSize : HeaderSize+length],
	}, nil
}

// AppendFrame encodes a frame for the given sequence and payload, computing
// the CRC the way the device does. Used by tests and device simulators.
func AppendFrame(dst []byte, seq uint32, payload []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, seq)
	dst = binary.LittleEndian.AppendUint16(dst, uint16(len(payload)))
	dst = binary.LittleEndian.AppendUint16(dst, CRC16CCITT(payload))
	return append(dst, payload...)
}

// AppendEOF encodes the end-of-file marker frame.
func AppendEOF(dst []byte, seq uint32) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, seq)
	return append(dst, 0, 0, 0, 0)
}

// CRC16CCITT computes the checksum the device firmware uses
// (poly 0x1021, init 0xFFFF).
func CRC16CCITT(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x1021
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
