// Package identity provides credential-backed account management: password
// verification with per-user salts, JWT issuance, email verification, and a
// typed command layer for login and registration workflows.
//
// Account lockout:
//   - UserLogin rows carry a failed attempt counter and an optional lock
//     deadline. AccountLockPolicy centralizes the thresholds; after five
//     consecutive failures the login locks for thirty minutes, and a
//     successful attempt resets both the counter and the lock. Every login
//     attempt persists exactly one state write through RecordAttempt.
//
// Commands:
//   - Handlers are plain structs registered on a Dispatcher keyed by message
//     kind. Messages implement Type and carry an optional OnResponse callback
//     invoked on success, so callers get typed results without the handler
//     knowing its transport.
//
// Email verification:
//   - Verifications issues single-use tokens valid for 24 hours. Token rows
//     are written inside the caller's transaction while delivery is enqueued
//     after commit, best effort, through the Mailer interface. The asynqmail
//     adapter backs Mailer with a Redis task queue.
//
// Activity sinks:
//   - ActivitySink receives audit events for logins, lockouts, registration,
//     and verification. Sinks run best-effort (errors are logged) so audit
//     forwarding never blocks authentication.
package identity
