package language

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// minTranscriptLength is the shortest transcript (in runes) text
	// detection is trusted on.
	minTranscriptLength = 10

	veryConfidentText       = 0.85
	confidentText           = 0.65
	overconfidentAcoustic   = 0.95
	clearWinnerText         = 0.60
	clearWinnerGap          = 0.30
	confidentTextNoAcoustic = 0.70
)

// Arbitrator reconciles the recognizer's language with the language of the
// transcript text. It holds no per-call state, the result only depends on
// the inputs and the detector.
type Arbitrator struct {
	detector TextDetector

	arbitrations metric.Int64Counter
}

// NewArbitrator builds an arbitrator. A nil detector disables text
// validation, every call then keeps the acoustic language.
func NewArbitrator(detector TextDetector) *Arbitrator {
	arbitrations, err := meter.Int64Counter("agentbridge.language.arbitrations",
		metric.WithDescription("Language arbitrations by outcome"),
	)
	if err != nil {
		logger.Warn("failed to create arbitrations counter", "error", err)
	}

	return &Arbitrator{detector: detector, arbitrations: arbitrations}
}

// Arbitrate decides the language of transcript. Failures of the text
// detector are never returned, the acoustic language is kept instead.
func (a *Arbitrator) Arbitrate(ctx context.Context, acoustic *Signal, transcript string) Result {
	ctx, span := tracer.Start(ctx, "arbitrate language")
	defer span.End()

	result := a.arbitrate(acoustic, transcript)

	attrs := []attribute.KeyValue{
		attribute.Bool("overridden", result.Overridden),
		attribute.String("reason", string(result.Reason)),
	}
	span.SetAttributes(append(attrs, attribute.String("language", result.Code))...)
	if acoustic != nil {
		span.SetAttributes(attribute.String("acoustic.language", acoustic.Code))
	}
	if result.Text != nil {
		span.SetAttributes(attribute.String("text.language", result.Text.Code))
	}
	if a.arbitrations != nil {
		a.arbitrations.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	if result.Overridden {
		logger.Info("language overridden by text detection",
			"acoustic", acousticCode(acoustic),
			"language", result.Code,
			"reason", result.Reason,
		)
	} else {
		logger.Debug("language kept", "language", result.Code, "reason", result.Reason)
	}

	return result
}

func (a *Arbitrator) arbitrate(acoustic *Signal, transcript string) Result {
	keep := func(reason Reason, text *Signal) Result {
		return Result{Code: acousticCode(acoustic), Reason: reason, Text: text}
	}

	if utf8.RuneCountInString(strings.TrimSpace(transcript)) < minTranscriptLength {
		return keep(ReasonTranscriptTooShort, nil)
	}
	if a.detector == nil {
		return keep(ReasonTextDetectionUnavailable, nil)
	}

	candidates, err := a.detector.Detect(transcript)
	if err != nil {
		logger.Warn("text language detection failed", "error", err)
		return keep(ReasonTextDetectionUnavailable, nil)
	}
	if len(candidates) == 0 {
		return keep(ReasonTextDetectionUnavailable, nil)
	}

	top := candidates[0]
	var second float64
	if len(candidates) > 1 {
		second = candidates[1].Probability
	}
	gap := top.Probability - second

	textCode, mapped := FullCode(top.Code)
	probability := top.Probability
	text := &Signal{Source: SourceText, Code: textCode, Confidence: &probability}
	if !mapped {
		text.Code = top.Code
	}

	if acousticCode(acoustic) == "" {
		switch {
		case top.Probability <= confidentTextNoAcoustic:
			return Result{Reason: ReasonNoConfidentLanguage, Text: text}
		case !mapped:
			return Result{Reason: ReasonUnmappedTextLanguage, Text: text}
		}
		return Result{Code: textCode, Overridden: true, Reason: ReasonAcousticMissing, Text: text}
	}

	if BaseLanguage(acoustic.Code) == BaseLanguage(top.Code) {
		return keep(ReasonLanguagesAgree, text)
	}
	if !mapped {
		return keep(ReasonUnmappedTextLanguage, text)
	}

	override := func(reason Reason) Result {
		return Result{Code: textCode, Overridden: true, Reason: reason, Text: text}
	}
	switch {
	case top.Probability > veryConfidentText:
		return override(ReasonTextVeryConfident)
	case top.Probability > confidentText && (acoustic.Confidence == nil || *acoustic.Confidence > overconfidentAcoustic):
		return override(ReasonAcousticOverconfident)
	case top.Probability > clearWinnerText && gap > clearWinnerGap:
		return override(ReasonTextClearWinner)
	}
	return keep(ReasonInsufficientConfidence, text)
}

func acousticCode(acoustic *Signal) string {
	if acoustic == nil {
		return ""
	}
	return acoustic.Code
}
