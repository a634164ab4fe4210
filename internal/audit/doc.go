// Package audit dispatches session lifecycle events to a sink without
// blocking the request path.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full or block-if-full
//     semantics.
//   - [Event]: one lifecycle record with id, timestamp, session id and IP.
//
// # What this package must NOT do
//
//   - Decide which events to emit; the Engine does that.
//   - Import goSession or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
