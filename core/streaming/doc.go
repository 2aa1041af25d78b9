// Package streaming turns the chunks of an agent run into start, delta and
// end outputs.
//
// A chunk is first classified by Normalize. Tool activity is recorded by a
// ToolTracker and the DeltaEmitter compares cumulative assistant content
// against what it already emitted, so only newly appended text leaves the
// package. Session ties the three together for a single connection.
package streaming
