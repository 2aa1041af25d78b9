package deepgram

import (
	"fmt"
	"slices"

	"github.com/koscakluka/ema-agentbridge/core/audio"
)

// listenSampleRates lists the rates the live transcription endpoint accepts
// per raw encoding. Companded telephony audio is 8kHz only.
var listenSampleRates = map[audio.EncodingFormat][]int{
	audio.EncodingLinear16: {8000, 16000, 24000, 32000, 48000},
	audio.EncodingALaw:     {8000},
	audio.EncodingMulaw:    {8000},
}

func listenEncoding(encoding audio.EncodingInfo) (audio.EncodingInfo, error) {
	rates, ok := listenSampleRates[encoding.Format]
	if !ok {
		return audio.EncodingInfo{}, fmt.Errorf("unsupported encoding %q", encoding.Format)
	}
	if !slices.Contains(rates, encoding.SampleRate) {
		return audio.EncodingInfo{}, fmt.Errorf("unsupported sample rate %d for %s encoding", encoding.SampleRate, encoding.Format)
	}
	return encoding, nil
}
