// Package tasks implements the two playlist flows behind the web routes.
//
// # Core Operations
//
//  1. [Engine.SaveTopTracks] : mirror the user's top tracks
//     - Fetches the top 20 tracks
//     - Reconciles them into "Saved Top Tracks Weekly"
//
//  2. [Engine.GenerateRecommendations] : completion model recommendations
//     - Formats the top tracks into a prompt and asks for 10 similar songs
//     - Parses the reply as a JSON array of song/artist objects
//     - Searches each recommendation, skipping the ones without a match
//     - Reconciles the matches into "Similar Songs Weekly"
//
// # Reconciliation
//
// [Reconciler] finds the managed playlist by exact name (first match wins) or creates it, clears it when it
// already existed and adds the new items in one call. A failed add after a clear is not compensated, so the
// playlist may be left empty.
//
// All upstream calls run sequentially on the request goroutine. Nothing is retried.
package tasks
