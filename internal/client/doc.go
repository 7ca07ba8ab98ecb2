// Package client drives a long-lived rendering engine over its stdin/stdout.
//
// The engine speaks one JSON envelope per line ({"type":<int>,"data":{...}}).
// A Client owns the spawned process, writes commands to it, and runs a single
// listener goroutine that decodes the engine's output and keeps a mirror of
// its state.
//
// Key features:
//   - Five fire-and-forget commands (timestamp, load/delete preset, start/stop preview)
//   - Single listener goroutine; messages are dispatched in wire order
//   - Malformed lines are logged and dropped; the listener keeps going
//   - Read timeouts are retried; EOF ends the listener
//   - Subscribers are notified synchronously, in registration order
//
// State:
//   - PresetQueue is replaced wholesale by every CURRENT_STATE
//   - LastTimestampMs tracks what this client sent, never what the engine echoed
//   - IsPreviewPlaying is set optimistically by preview commands and
//     authoritatively by PREVIEW_STATUS; the engine wins on conflict
//   - All fields sit behind one mutex; State() returns a deep copy
//
// Lifecycle:
//   - Start: spawn → listener → warm-up delay → running
//   - Close: cancel listener → bounded join → close pipes → SIGTERM → grace → SIGKILL
//   - Close is idempotent; a failed Start cleans up after itself
//
// Subscribers run on the listener goroutine. A slow subscriber stalls message
// processing, and calling a command from inside a subscriber can deadlock
// against a full pipe. Hand work off to a channel instead.
package client
