// Package session keeps the user's OAuth token in a gorilla session.
//
// [Manager] adapts any [sessions.Store] to the narrow [Session] interface. [NewStore] builds the store named by
// config: a signed and encrypted cookie, or a [ServerStore] that keeps only the session id in the cookie and the
// values in a [Backend] (SQLite or Redis).
//
// [TokenStore] sits on top and hands out tokens that are valid for at least [RefreshWindow], refreshing them
// through the OAuth client when needed.
package session
