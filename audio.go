package plivostream

import (
	"encoding/binary"
)

// Audio helpers for the telephony formats carried on a stream. The SDK
// does not transcode audio; these utilities size chunks and wrap captured
// bytes in a playable container.

// DefaultChunkMS is the recommended duration of one outbound audio chunk.
const DefaultChunkMS = 200

// MuLawBytesFor calculates the number of bytes for mu-law audio of the
// given duration. Mu-law carries one byte per sample.
func MuLawBytesFor(ms, sampleRate int) int { return ms * sampleRate / 1000 }

// WAVFromMuLaw wraps raw mu-law audio bytes in a WAV container so
// captured caller audio can be saved or fed to standard players. The
// container uses WAV format code 7 (mu-law), mono, 8 bits per sample.
func WAVFromMuLaw(mulaw []byte, sampleRate int) []byte {
	const (
		fmtChunkSize  = 18 // Non-PCM formats carry a zero-length extension field
		factChunkSize = 4
	)
	dataLen := uint32(len(mulaw))
	riffLen := uint32(4 + (8 + fmtChunkSize) + (8 + factChunkSize) + (8 + len(mulaw)))
	out := make([]byte, 12+8+fmtChunkSize+8+factChunkSize+8+len(mulaw))

	// RIFF header
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], riffLen)
	copy(out[8:], []byte("WAVE"))

	// Format chunk
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], fmtChunkSize)
	binary.LittleEndian.PutUint16(out[20:], 7) // audio format (mu-law)
	binary.LittleEndian.PutUint16(out[22:], 1) // num channels (mono)
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(sampleRate)) // byte rate, 1 byte/sample
	binary.LittleEndian.PutUint16(out[32:], 1)                  // block align
	binary.LittleEndian.PutUint16(out[34:], 8)                  // bits per sample
	binary.LittleEndian.PutUint16(out[36:], 0)                  // extension size

	// Fact chunk, required for non-PCM formats
	copy(out[38:], []byte("fact"))
	binary.LittleEndian.PutUint32(out[42:], factChunkSize)
	binary.LittleEndian.PutUint32(out[46:], dataLen) // samples per channel

	// Data chunk
	copy(out[50:], []byte("data"))
	binary.LittleEndian.PutUint32(out[54:], dataLen)
	copy(out[58:], mulaw)
	return out
}
