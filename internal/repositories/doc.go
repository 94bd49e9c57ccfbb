// Package repositories implements server-side session persistence.
//
// Both repositories store an opaque, already-encoded session payload under the session id with an optional TTL.
// A missing or expired entry is reported as [shared.ErrSessionNotFound].
//
// Key Implementations:
//   - [SessionRepository] : SQLite table with expires_at stamps, swept by [SessionRepository.DeleteExpired]
//   - [RedisRepository] : Redis string keys with native expiry
package repositories
