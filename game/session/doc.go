// Package session provides in-memory session management for the puzzle server.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Short random session IDs
//   - Expiry of idle sessions
//
// Core Types:
//
// Manager stores service.Session values keyed by lower-cased ID. Each session
// owns its own engine and records creation and last access times.
//
// Session Identifiers:
//
// Generated IDs are the first eight hex digits of a random UUID. Callers may
// supply their own ID; lookups are case-insensitive.
//
// Usage:
//
//	manager := session.NewManager(session.WithLogger(logger))
//
//	sess, err := manager.Create("", "classic", level.Classic())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
//
// Cleanup:
//
// RunCleanup blocks until its context is cancelled, removing sessions idle for
// longer than maxAge on every interval. The server runs it with
// DefaultCleanupInterval and DefaultMaxAge.
package session
