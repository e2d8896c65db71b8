package transcode

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/at-wat/ebml-go"
	"github.com/at-wat/ebml-go/webm"
	"gopkg.in/hraban/opus.v2"

	"github.com/teslashibe/go-jarvis/pkg/audio"
)

const frameMs = 20

// makeWebM encodes frames of a 440 Hz tone as 20 ms Opus packets in a WebM
// container. Every other packet goes into a BlockGroup to cover both block kinds.
func makeWebM(t *testing.T, frames, channels int) []byte {
	t.Helper()

	enc, err := opus.NewEncoder(opusSampleRate, channels, opus.AppVoIP)
	if err != nil {
		t.Fatalf("create encoder: %v", err)
	}

	samplesPerFrame := opusSampleRate * frameMs / 1000
	pcm := make([]int16, samplesPerFrame*channels)
	packet := make([]byte, 4000)

	cluster := webm.Cluster{Timecode: 0}
	for i := 0; i < frames; i++ {
		for s := 0; s < samplesPerFrame; s++ {
			v := int16(8000 * math.Sin(2*math.Pi*440*float64(i*samplesPerFrame+s)/opusSampleRate))
			for c := 0; c < channels; c++ {
				pcm[s*channels+c] = v
			}
		}
		n, err := enc.Encode(pcm, packet)
		if err != nil {
			t.Fatalf("encode frame %d: %v", i, err)
		}
		block := ebml.Block{
			TrackNumber: 1,
			Timecode:    int16(i * frameMs),
			Keyframe:    true,
			Data:        [][]byte{append([]byte(nil), packet[:n]...)},
		}
		if i%2 == 0 {
			cluster.SimpleBlock = append(cluster.SimpleBlock, block)
		} else {
			cluster.BlockGroup = append(cluster.BlockGroup, webm.BlockGroup{Block: block})
		}
	}

	doc := webmDocument{
		Header: webm.EBMLHeader{
			EBMLVersion:        1,
			EBMLReadVersion:    1,
			EBMLMaxIDLength:    4,
			EBMLMaxSizeLength:  8,
			DocType:            "webm",
			DocTypeVersion:     4,
			DocTypeReadVersion: 2,
		},
		Segment: webm.Segment{
			Info: webm.Info{
				TimecodeScale: 1000000,
				MuxingApp:     "jarvis-test",
				WritingApp:    "jarvis-test",
			},
			Tracks: webm.Tracks{
				TrackEntry: []webm.TrackEntry{{
					Name:        "Audio",
					TrackNumber: 1,
					TrackUID:    0xC0FFEE,
					CodecID:     codecOpus,
					TrackType:   trackAudio,
					Audio: &webm.Audio{
						SamplingFrequency: opusSampleRate,
						Channels:          uint64(channels),
					},
				}},
			},
			Cluster: []webm.Cluster{cluster},
		},
	}

	var buf bytes.Buffer
	if err := ebml.Marshal(&doc, &buf); err != nil {
		t.Fatalf("marshal webm: %v", err)
	}
	return buf.Bytes()
}

func makeWAV(t *testing.T, seconds float64, rate, channels int) []byte {
	t.Helper()
	frames := int(seconds * float64(rate))
	samples := make([]int16, frames*channels)
	for i := range samples {
		samples[i] = int16(i % 1000)
	}
	data, err := audio.EncodeWAV(samples, rate, channels)
	if err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	return data
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"webm", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x01}, FormatWebM},
		{"wav", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), FormatWAV},
		{"riff not wave", []byte("RIFF\x00\x00\x00\x00AVI LIST"), FormatAuto},
		{"ogg", []byte("OggS\x00\x02"), FormatOgg},
		{"mp3 id3", []byte("ID3\x04\x00"), FormatMP3},
		{"mp3 sync", []byte{0xFF, 0xFB, 0x90, 0x00}, FormatMP3},
		{"garbage", []byte("hello"), FormatAuto},
		{"empty", nil, FormatAuto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.data); got != tt.want {
				t.Errorf("Detect() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("audio/webm;codecs=opus") != FormatWebM {
		t.Error("expected webm for MediaRecorder MIME type")
	}
	if ParseFormat("") != FormatAuto {
		t.Error("expected auto for empty name")
	}
}

// TestNativeWebMDuration checks output length against the container's frame
// count at several target rates.
func TestNativeWebMDuration(t *testing.T) {
	const frames = 50 // one second
	data := makeWebM(t, frames, 1)
	n := NewNative()

	for _, rate := range []int{48000, 16000, 8000, 44100} {
		target := Spec{SampleRate: rate, Encoding: EncodingLinear16, Channels: 1}

		pcm, err := n.Transcode(context.Background(), data, FormatAuto, target)
		if err != nil {
			t.Fatalf("rate %d: unexpected error: %v", rate, err)
		}

		got := len(pcm) / 2
		want := frames * rate * frameMs / 1000
		oneFrame := rate * frameMs / 1000
		if diff := got - want; diff < -oneFrame || diff > oneFrame {
			t.Errorf("rate %d: expected %d samples (±%d), got %d", rate, want, oneFrame, got)
		}
	}
}

func TestNativeWebMStereoDownmix(t *testing.T) {
	data := makeWebM(t, 10, 2)

	pcm, err := NewNative().Transcode(context.Background(), data, FormatWebM, DefaultSpec())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := len(pcm)/2, 10*960; got != want {
		t.Errorf("expected %d mono samples, got %d", want, got)
	}
}

func TestNativeWAV(t *testing.T) {
	data := makeWAV(t, 0.5, 16000, 2)

	pcm, err := NewNative().Transcode(context.Background(), data, FormatWAV, DefaultSpec())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(pcm) / 2; got != 24000 {
		t.Errorf("expected 24000 samples at 48 kHz, got %d", got)
	}
}

func TestNativeDecodeErrors(t *testing.T) {
	webmData := makeWebM(t, 5, 1)
	wavData := makeWAV(t, 0.1, 8000, 1)

	tests := []struct {
		name   string
		data   []byte
		format Format
	}{
		{"empty", nil, FormatWebM},
		{"garbage as webm", []byte("definitely not a matroska stream"), FormatWebM},
		{"webm header cut", webmData[:24], FormatWebM},
		{"webm cut inside last block", webmData[:len(webmData)-3], FormatWebM},
		{"webm cut mid cluster", webmData[:len(webmData)/2], FormatWebM},
		{"truncated wav", wavData[:len(wavData)-7], FormatWAV},
		{"unsupported container", []byte("OggS\x00\x02\x00\x00"), FormatOgg},
	}

	n := NewNative()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Transcode(context.Background(), tt.data, tt.format, DefaultSpec())
			var decErr *DecodeError
			if !errors.As(err, &decErr) {
				t.Fatalf("expected *DecodeError, got %v", err)
			}
			if decErr.Backend != backendNative {
				t.Errorf("expected native backend, got %s", decErr.Backend)
			}
		})
	}
}

func TestReadVint(t *testing.T) {
	tests := []struct {
		in   []byte
		want int64
		n    int
	}{
		{[]byte{0x81}, 1, 1},
		{[]byte{0x40, 0x02}, 2, 2},
		{[]byte{0xFF}, -1, 1},
		{[]byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, -1, 8},
	}
	for _, tt := range tests {
		got, n, ok := readVint(tt.in)
		if !ok || got != tt.want || n != tt.n {
			t.Errorf("readVint(%x) = %d, %d, %v; want %d, %d", tt.in, got, n, ok, tt.want, tt.n)
		}
	}
	if _, _, ok := readVint([]byte{0x40}); ok {
		t.Error("expected short vint to fail")
	}
}

func TestCheckSegmentSizeUnknown(t *testing.T) {
	// MediaRecorder streams declare an unknown Segment size.
	data := append(append([]byte{}, segmentID...), 0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
	if err := checkSegmentSize(data); err != nil {
		t.Errorf("unknown size should pass, got %v", err)
	}
}

func TestNativeRejectsBadTarget(t *testing.T) {
	data := makeWAV(t, 0.1, 8000, 1)
	_, err := NewNative().Transcode(context.Background(), data, FormatWAV, Spec{SampleRate: 0, Channels: 1})
	if !errors.Is(err, ErrUnsupportedTarget) {
		t.Errorf("expected ErrUnsupportedTarget, got %v", err)
	}
}

func TestNativeIsPure(t *testing.T) {
	data := makeWebM(t, 5, 1)
	orig := append([]byte(nil), data...)

	a, err := NewNative().Transcode(context.Background(), data, FormatWebM, DefaultSpec())
	if err != nil {
		t.Fatalf("first transcode: %v", err)
	}
	b, err := NewNative().Transcode(context.Background(), data, FormatWebM, DefaultSpec())
	if err != nil {
		t.Fatalf("second transcode: %v", err)
	}

	if !bytes.Equal(data, orig) {
		t.Error("input buffer was modified")
	}
	if !bytes.Equal(a, b) {
		t.Error("identical input produced different output")
	}
}

func TestFFmpegArgs(t *testing.T) {
	f := NewFFmpeg(WithFFmpegPath("/usr/bin/ffmpeg"))
	args := strings.Join(f.buildArgs(FormatWebM, DefaultSpec()), " ")

	for _, want := range []string{"-f matroska", "-i pipe:0", "-ar 48000", "-ac 1", "-f s16le", "pipe:1"} {
		if !strings.Contains(args, want) {
			t.Errorf("expected %q in args: %s", want, args)
		}
	}

	auto := strings.Join(f.buildArgs(FormatAuto, DefaultSpec()), " ")
	if strings.Contains(auto, "matroska") {
		t.Errorf("auto format should let ffmpeg probe: %s", auto)
	}
}

func TestFFmpegMissingBinary(t *testing.T) {
	f := NewFFmpeg(WithFFmpegPath("/nonexistent/ffmpeg-binary"))
	_, err := f.Transcode(context.Background(), []byte("OggS"), FormatOgg, DefaultSpec())
	if !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("expected ErrFFmpegNotFound, got %v", err)
	}
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Error("expected error to be a *DecodeError")
	}
}

func TestFFmpegWAV(t *testing.T) {
	f := NewFFmpeg()
	if !f.Available() {
		t.Skip("ffmpeg not installed")
	}

	data := makeWAV(t, 1, 16000, 1)
	pcm, err := f.Transcode(context.Background(), data, FormatWAV, DefaultSpec())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, want := len(pcm)/2, 48000
	if got < want-960 || got > want+960 {
		t.Errorf("expected ~%d samples, got %d", want, got)
	}
}

func TestAutoRoutesNative(t *testing.T) {
	// A missing ffmpeg must not matter for natively decodable input.
	a := NewAuto(WithFFmpegPath("/nonexistent/ffmpeg-binary"))
	data := makeWebM(t, 5, 1)

	pcm, err := a.Transcode(context.Background(), data, FormatAuto, DefaultSpec())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pcm) != 5*960*2 {
		t.Errorf("expected %d bytes, got %d", 5*960*2, len(pcm))
	}
}

func TestNewByName(t *testing.T) {
	if _, ok := New("native").(*Native); !ok {
		t.Error("expected *Native")
	}
	if _, ok := New("ffmpeg").(*FFmpeg); !ok {
		t.Error("expected *FFmpeg")
	}
	if _, ok := New("").(*Auto); !ok {
		t.Error("expected *Auto default")
	}
}
