package transcode

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/bits"

	"github.com/at-wat/ebml-go"
	"github.com/at-wat/ebml-go/webm"
	"gopkg.in/hraban/opus.v2"

	"github.com/teslashibe/go-jarvis/pkg/audio"
)

const (
	backendNative = "native"

	// Opus always decodes at 48 kHz regardless of the input bandwidth.
	opusSampleRate = 48000

	// maxOpusFrame is 120 ms at 48 kHz, the longest legal Opus packet.
	maxOpusFrame = 5760

	codecOpus  = "A_OPUS"
	trackAudio = 2
)

// Native decodes WebM/Opus and WAV in-process with no external binaries.
type Native struct {
	logger *slog.Logger
}

// NewNative creates an in-process transcoder.
func NewNative(opts ...Option) *Native {
	cfg := defaultConfig()
	cfg.apply(opts...)
	return &Native{logger: cfg.logger.With("component", "transcode.native")}
}

// Supports reports whether the native backend can decode format.
func (n *Native) Supports(format Format) bool {
	return format == FormatWebM || format == FormatWAV
}

// Transcode decodes data and converts it to target.
func (n *Native) Transcode(ctx context.Context, data []byte, source Format, target Spec) ([]byte, error) {
	if source == FormatAuto {
		source = Detect(data)
	}
	if len(data) == 0 {
		return nil, decodeError(backendNative, source, ErrEmptyInput)
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		samples  []int16
		rate     int
		channels int
		err      error
	)

	switch source {
	case FormatWebM:
		samples, channels, err = decodeWebM(data)
		rate = opusSampleRate
	case FormatWAV:
		var info audio.WAVInfo
		samples, info, err = audio.DecodeWAV(data)
		rate, channels = info.SampleRate, info.Channels
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		return nil, decodeError(backendNative, source, err)
	}

	out := convert(samples, rate, channels, target)

	n.logger.Debug("transcoded audio",
		"format", source,
		"in_bytes", len(data),
		"out_bytes", len(out),
		"duration", audio.Duration(len(out)/2, target.SampleRate, target.Channels),
	)
	return out, nil
}

// convert mixes and resamples interleaved PCM to the target spec.
func convert(samples []int16, rate, channels int, target Spec) []byte {
	mono := audio.Downmix(samples, channels)
	mono = audio.Resample(mono, rate, target.SampleRate)
	return audio.SamplesToBytes(audio.Upmix(mono, target.Channels))
}

// segmentID is the Matroska Segment element ID.
var segmentID = []byte{0x18, 0x53, 0x80, 0x67}

// checkSegmentSize fails when the Segment declares more bytes than data
// holds. ebml-go stops quietly at an element boundary, so a cut between two
// blocks would otherwise decode as a shorter recording. Live recorders
// write an unknown size, which is not checked.
func checkSegmentSize(data []byte) error {
	i := bytes.Index(data, segmentID)
	if i < 0 {
		return nil
	}
	body := data[i+len(segmentID):]
	size, n, ok := readVint(body)
	if !ok {
		return fmt.Errorf("segment header: %w", io.ErrUnexpectedEOF)
	}
	if size >= 0 && uint64(len(body)-n) < uint64(size) {
		return fmt.Errorf("segment truncated at %d of %d bytes: %w", len(body)-n, size, io.ErrUnexpectedEOF)
	}
	return nil
}

// readVint decodes an EBML variable-length size. An all-ones value means
// unknown and is returned as -1.
func readVint(b []byte) (int64, int, bool) {
	if len(b) == 0 || b[0] == 0 {
		return 0, 0, false
	}
	n := bits.LeadingZeros8(b[0]) + 1
	if len(b) < n {
		return 0, 0, false
	}
	mask := uint64(0xFF) >> n
	v := uint64(b[0]) & mask
	unknown := v == mask
	for _, c := range b[1:n] {
		v = v<<8 | uint64(c)
		unknown = unknown && c == 0xFF
	}
	if unknown {
		return -1, n, true
	}
	return int64(v), n, true
}

// webmDocument is the top-level layout of a WebM stream.
type webmDocument struct {
	Header  webm.EBMLHeader `ebml:"EBML"`
	Segment webm.Segment    `ebml:"Segment"`
}

// decodeWebM demuxes the first Opus track and decodes every packet.
// It returns interleaved 48 kHz samples and the channel count.
func decodeWebM(data []byte) ([]int16, int, error) {
	if err := checkSegmentSize(data); err != nil {
		return nil, 0, err
	}

	var doc webmDocument
	if err := ebml.Unmarshal(bytes.NewReader(data), &doc); err != nil {
		return nil, 0, fmt.Errorf("demux webm: %w", err)
	}

	track, err := opusTrack(doc.Segment.Tracks.TrackEntry)
	if err != nil {
		return nil, 0, err
	}

	channels := 1
	if track.Audio != nil && track.Audio.Channels > 0 {
		channels = int(track.Audio.Channels)
	}

	dec, err := opus.NewDecoder(opusSampleRate, channels)
	if err != nil {
		return nil, 0, fmt.Errorf("create opus decoder: %w", err)
	}

	pcm := make([]int16, maxOpusFrame*channels)
	var out []int16
	packets := 0

	decodeBlock := func(b ebml.Block) error {
		if b.TrackNumber != track.TrackNumber {
			return nil
		}
		for _, frame := range b.Data {
			n, err := dec.Decode(frame, pcm)
			if err != nil {
				return fmt.Errorf("decode opus packet %d: %w", packets, err)
			}
			out = append(out, pcm[:n*channels]...)
			packets++
		}
		return nil
	}

	for _, cluster := range doc.Segment.Cluster {
		for _, b := range cluster.SimpleBlock {
			if err := decodeBlock(b); err != nil {
				return nil, 0, err
			}
		}
		for _, g := range cluster.BlockGroup {
			if err := decodeBlock(g.Block); err != nil {
				return nil, 0, err
			}
		}
	}

	if packets == 0 {
		return nil, 0, ErrNoAudio
	}
	return out, channels, nil
}

func opusTrack(entries []webm.TrackEntry) (webm.TrackEntry, error) {
	for _, t := range entries {
		if t.CodecID == codecOpus && (t.TrackType == trackAudio || t.TrackType == 0) {
			return t, nil
		}
	}
	return webm.TrackEntry{}, fmt.Errorf("%w: no opus audio track", ErrUnsupportedFormat)
}

var _ Transcoder = (*Native)(nil)
