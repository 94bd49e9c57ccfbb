// Package models defines the domain types passed between the HTTP surface, the flows in tasks, and the
// service clients.
//
//   - [Token] : the OAuth token tuple held in the user's session
//   - [Track] : a catalog track reference (URI, name, artist names)
//   - [Recommendation] : one {song, artist} record parsed from the completion model reply
//   - [Playlist] : a playlist id, name and external URL
//   - [GenerateResult] : the JSON payload returned by the recommendation flow
//
// Only [Token] outlives a request; everything else is built and dropped within one handler call.
package models
