package deepgram

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/koscakluka/ema-agentbridge/core/speechtotext"
)

type segment struct {
	Transcript string
	Language   string
	Confidence *float64

	IsFinal     bool
	SpeechFinal bool
}

// alternatives carries the fields of a Results message that the listen
// interfaces do not model for multilingual streams.
type alternatives struct {
	Channel struct {
		Alternatives []struct {
			Confidence *float64 `json:"confidence"`
			Languages  []string `json:"languages"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func parseResults(msg []byte) (segment, error) {
	var msgResp api.MessageResponse
	if err := json.Unmarshal(msg, &msgResp); err != nil {
		return segment{}, fmt.Errorf("failed to unmarshal deepgram results: %w", err)
	}

	seg := segment{IsFinal: msgResp.IsFinal, SpeechFinal: msgResp.SpeechFinal}
	if len(msgResp.Channel.Alternatives) == 0 {
		return seg, nil
	}
	seg.Transcript = strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)

	var extra alternatives
	if err := json.Unmarshal(msg, &extra); err != nil {
		return segment{}, fmt.Errorf("failed to unmarshal deepgram alternatives: %w", err)
	}
	if len(extra.Channel.Alternatives) > 0 {
		alternative := extra.Channel.Alternatives[0]
		seg.Confidence = alternative.Confidence
		if len(alternative.Languages) > 0 {
			seg.Language = alternative.Languages[0]
		}
	}
	return seg, nil
}

// utteranceBuilder joins final segments until the speaker stops. The
// utterance takes the language of its longest segment.
type utteranceBuilder struct {
	transcripts []string

	language       string
	confidence     *float64
	languageWeight int

	unended bool
}

func (b *utteranceBuilder) add(seg segment) {
	if seg.Transcript == "" {
		return
	}
	b.transcripts = append(b.transcripts, seg.Transcript)

	if weight := utf8.RuneCountInString(seg.Transcript); seg.Language != "" && weight > b.languageWeight {
		b.language = seg.Language
		b.confidence = seg.Confidence
		b.languageWeight = weight
	}
}

func (b *utteranceBuilder) interim(partial string) string {
	return strings.TrimSpace(strings.Join(append(b.transcripts[:len(b.transcripts):len(b.transcripts)], partial), " "))
}

// finish returns the utterance and resets the builder. The second return
// value is false when nothing was said.
func (b *utteranceBuilder) finish() (speechtotext.Utterance, bool) {
	utterance := speechtotext.Utterance{
		Transcript: strings.TrimSpace(strings.Join(b.transcripts, " ")),
		Language:   b.language,
		Confidence: b.confidence,
	}
	*b = utteranceBuilder{}
	return utterance, utterance.Transcript != ""
}
