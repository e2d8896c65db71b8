package transcode

import "bytes"

var (
	magicEBML = []byte{0x1A, 0x45, 0xDF, 0xA3}
	magicRIFF = []byte("RIFF")
	magicWAVE = []byte("WAVE")
	magicOgg  = []byte("OggS")
	magicID3  = []byte("ID3")
)

// Detect sniffs the container format from leading magic bytes.
// It returns FormatAuto when the container is not recognized.
func Detect(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, magicEBML):
		return FormatWebM
	case len(data) >= 12 && bytes.HasPrefix(data, magicRIFF) && bytes.Equal(data[8:12], magicWAVE):
		return FormatWAV
	case bytes.HasPrefix(data, magicOgg):
		return FormatOgg
	case bytes.HasPrefix(data, magicID3):
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG audio frame sync
		return FormatMP3
	default:
		return FormatAuto
	}
}
