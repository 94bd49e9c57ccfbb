package tasks

// Phase names a step of a playlist flow. It is attached to log lines as the "phase" field.
type Phase int

const (
	FetchProfile Phase = iota
	FetchTopTracks
	FetchPlaylists
	CreatePlaylist
	ClearPlaylist
	AddItems
	Recommend
	SearchTracks
)

func (p Phase) String() string {
	switch p {
	case FetchProfile:
		return "fetch_profile"
	case FetchTopTracks:
		return "fetch_top_tracks"
	case FetchPlaylists:
		return "fetch_playlists"
	case CreatePlaylist:
		return "create_playlist"
	case ClearPlaylist:
		return "clear_playlist"
	case AddItems:
		return "add_items"
	case Recommend:
		return "recommend"
	case SearchTracks:
		return "search_tracks"
	default:
		return "unknown"
	}
}
