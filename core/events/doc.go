// Package events defines the typed event contract between the bridge and
// its output sink.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - user_input.*
//   - assistant_response.*
//   - tool_call.*
//   - assistant_speech.*
//   - turn_state.*
//   - language.*
//
// Semantics used across the package:
//
//   - Frame: binary audio frame/chunk payload.
//   - Segment: append-only text piece emitted in stream order.
//   - Final: terminal marker for the current stream/turn phase.
//
// user_input events
//
//   - UserSpeechStarted (user_input.speech_started): speech activity began.
//   - UserTranscriptInterim (user_input.transcript_interim): partial
//     transcript of the utterance in progress.
//   - UserTranscriptFinal (user_input.transcript_final): terminal full
//     transcript for the utterance, with the recognizer's language.
//
// assistant_response events
//
//   - AssistantResponseStarted (assistant_response.started): start marker,
//     sent before the first segment of a run.
//   - AssistantResponseSegment (assistant_response.segment): newly appended
//     response text. Concatenating the segments of a run gives its response.
//   - AssistantResponseFinal (assistant_response.final): end marker, sent
//     once per started response, also when the run is cancelled or fails.
//
// tool_call events
//
//   - ToolCallStarted (tool_call.started): the agent used a tool for the
//     first time in the run.
//
// assistant_speech events
//
//   - AssistantSpeechFrame (assistant_speech.frame): synthesized speech audio
//     frame.
//   - AssistantSpeechMark (assistant_speech.mark): the text whose speech has
//     been produced so far, one sentence at a time.
//   - AssistantSpeechFinal (assistant_speech.final): TTS generation ended.
//
// turn_state events
//
//   - TurnStarted (turn_state.started): a run was opened.
//   - TurnCompleted (turn_state.completed): the run stream ended.
//   - TurnFailed (turn_state.failed): the run ended with an error.
//   - TurnCancelled (turn_state.cancelled): the run was interrupted or
//     replaced by newer input.
//
// language events
//
//   - LanguageArbitrated (language.arbitrated): language decided for an
//     utterance.
//   - VoiceSwitched (language.voice_switched): the synthesis voice changed.
package events
