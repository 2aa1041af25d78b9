package audio

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultSampleRate = 16000
	DefaultFormat     = EncodingLinear16
)

// EncodingFormat names a raw, headerless sample encoding shared by client
// audio, transcription and synthesis.
type EncodingFormat string

const (
	EncodingMulaw    EncodingFormat = "mulaw"
	EncodingALaw     EncodingFormat = "alaw"
	EncodingLinear16 EncodingFormat = "linear16"
)

func (e EncodingFormat) Name() string {
	return string(e)
}

// ByteSize is the size of one mono sample, or -1 for unknown formats.
func (e EncodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

// EncodingInfo describes mono audio exchanged with a session.
type EncodingInfo struct {
	SampleRate int
	Format     EncodingFormat
}

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: DefaultSampleRate, Format: DefaultFormat}
}

// ParseEncodingInfo reads an encoding name and a sample rate as they appear
// in query parameters. Empty values fall back to the defaults.
func ParseEncodingInfo(format, sampleRate string) (EncodingInfo, error) {
	info := GetDefaultEncodingInfo()
	if format = strings.ToLower(strings.TrimSpace(format)); format != "" {
		info.Format = EncodingFormat(format)
	}
	if sampleRate = strings.TrimSpace(sampleRate); sampleRate != "" {
		rate, err := strconv.Atoi(sampleRate)
		if err != nil {
			return EncodingInfo{}, fmt.Errorf("invalid sample rate %q: %w", sampleRate, err)
		}
		info.SampleRate = rate
	}
	if err := info.Validate(); err != nil {
		return EncodingInfo{}, err
	}
	return info, nil
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) Validate() error {
	if e.Format.ByteSize() < 0 {
		return fmt.Errorf("unsupported encoding %q", e.Format)
	}
	if e.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", e.SampleRate)
	}
	return nil
}

// Duration is the playback length of n bytes of audio.
func (e EncodingInfo) Duration(n int) time.Duration {
	bytesPerSecond := e.SampleRate * e.Format.ByteSize()
	if bytesPerSecond <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(bytesPerSecond)
}

// SilenceValue is the byte that encodes silence. Linear PCM silence is zero.
func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	}
	return 0
}

// Silence returns d worth of silent audio.
func (e EncodingInfo) Silence(d time.Duration) []byte {
	size := int(d * time.Duration(e.SampleRate) / time.Second)
	if byteSize := e.Format.ByteSize(); byteSize > 0 {
		size *= byteSize
	}
	if size <= 0 {
		return nil
	}
	silence := make([]byte, size)
	if value := e.SilenceValue(); value != 0 {
		for i := range silence {
			silence[i] = value
		}
	}
	return silence
}
