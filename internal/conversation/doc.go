// Package conversation holds the shared transcript and the plain-chat flow
// that fills it.
//
// # Store
//
// Store is the ordered, append-only message log:
//
//	transcript := conversation.NewStore(journal, logger)
//	msg := transcript.Append(conversation.Draft{Role: store.RoleUser, Content: "..."})
//
// Every Append assigns a fresh id and a timestamp no earlier than the previous
// message's. Appends are serialized, so concurrent callers still get a total
// order matching the order in which they acquired the store. Subscribers see
// each appended message once, in that order.
//
// An optional Journal (the SQLite store) receives a copy of every message and
// backs the history endpoint. Journal failures are logged and never fail an
// append.
//
// # Service
//
// Service.Chat and Service.AnalyzeImage append the learner's message, ask the
// AI gateway, then append the answer with its related questions. The gateway
// never fails; when the caller's context is cancelled before an answer
// arrives, a short apology is appended instead of canned content.
package conversation
