// Package internal contains helpers private to goSession.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//
// # What this package must NOT do
//
//   - Export types that appear in the public goSession API, except through
//     aliases declared in the root package.
//   - Be imported by any package outside the goSession module.
package internal
