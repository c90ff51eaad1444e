// Package store provides persistent storage for the gateway using SQLite.
//
// # Architecture
//
// Two narrow interfaces are composed into Store:
//
//   - MessageStore: append-only journal mirroring the in-memory transcript
//   - QuestionStore: the learner's question notebook
//
// SQLiteStore implements both on top of modernc.org/sqlite (pure Go, no cgo).
//
// # Ordering
//
// Both tables carry an AUTOINCREMENT seq column. Reads order by seq rather than
// by timestamp, so append order is authoritative even when two rows share a
// timestamp.
//
// # In-memory databases
//
// Passing MemoryPath opens a private in-memory database limited to a single
// connection. Tests and the offline CLI use it.
package store
