package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// WAVHeader is the canonical 44-byte PCM WAV header.
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32 // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16 // NumChannels * BitsPerSample / 8
	BitsPerSample uint16
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// WAVInfo describes a decoded WAV stream.
type WAVInfo struct {
	SampleRate    int `json:"sample_rate"`
	Channels      int `json:"channels"`
	BitsPerSample int `json:"bits_per_sample"`
	NumFrames     int `json:"num_frames"`
}

// ErrInvalidWAV is returned for input that is not a complete PCM16 WAV stream.
var ErrInvalidWAV = errors.New("audio: invalid wav")

// EncodeWAV frames interleaved PCM16 samples as a WAV file.
func EncodeWAV(samples []int16, sampleRate, channels int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("channels must be positive, got %d", channels)
	}

	dataSize := uint32(len(samples) * 2)
	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(channels) * 2,
		BlockAlign:    uint16(channels * 2),
		BitsPerSample: 16,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 44+len(samples)*2))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write WAV header: %w", err)
	}
	if err := binary.Write(buf, binary.LittleEndian, samples); err != nil {
		return nil, fmt.Errorf("failed to write audio data: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeWAV parses a RIFF/WAVE PCM16 stream, skipping non-audio chunks such
// as LIST. The data chunk must be complete.
func DecodeWAV(data []byte) ([]int16, WAVInfo, error) {
	var info WAVInfo

	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, info, fmt.Errorf("%w: missing RIFF/WAVE header", ErrInvalidWAV)
	}

	haveFmt := false
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8

		switch id {
		case "fmt ":
			if size < 16 || body+size > len(data) {
				return nil, info, fmt.Errorf("%w: truncated fmt chunk", ErrInvalidWAV)
			}
			format := binary.LittleEndian.Uint16(data[body:])
			info.Channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			info.SampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(data[body+14:]))
			// 0xFFFE is WAVE_FORMAT_EXTENSIBLE; its sub-format is assumed PCM.
			if format != 1 && format != 0xFFFE {
				return nil, info, fmt.Errorf("%w: unsupported audio format %d", ErrInvalidWAV, format)
			}
			if info.BitsPerSample != 16 {
				return nil, info, fmt.Errorf("%w: unsupported bit depth %d", ErrInvalidWAV, info.BitsPerSample)
			}
			if info.Channels < 1 || info.SampleRate < 1 {
				return nil, info, fmt.Errorf("%w: bad channel count or sample rate", ErrInvalidWAV)
			}
			haveFmt = true

		case "data":
			if !haveFmt {
				return nil, info, fmt.Errorf("%w: data chunk before fmt chunk", ErrInvalidWAV)
			}
			if body+size > len(data) {
				return nil, info, fmt.Errorf("%w: truncated data chunk (%d of %d bytes)",
					ErrInvalidWAV, len(data)-body, size)
			}
			samples := BytesToSamples(data[body : body+size])
			info.NumFrames = len(samples) / info.Channels
			return samples, info, nil
		}

		// Chunks are word aligned.
		off = body + size + size%2
	}

	return nil, info, fmt.Errorf("%w: no data chunk", ErrInvalidWAV)
}
