// package formatter renders tracks into completion prompts and parses the model's reply
package formatter

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samrat-shrestha/toptracks/internal/models"
	"github.com/samrat-shrestha/toptracks/internal/shared"
)

// SystemPrompt constrains the model to a bare JSON array of song/artist objects.
const SystemPrompt = `You are a music recommendation assistant. ` +
	`Respond with a JSON array only, where every element is an object with exactly two string fields: "song" and "artist". ` +
	`Do not include any other text, explanation or markdown.`

// FormatTrack renders a track as "<title> by <artist1, artist2>".
func FormatTrack(t models.Track) string {
	return fmt.Sprintf("%s by %s", t.Name, strings.Join(t.Artists, ", "))
}

// FormatTracks renders one line per track, in order.
func FormatTracks(tracks []models.Track) string {
	lines := make([]string, 0, len(tracks))
	for _, t := range tracks {
		lines = append(lines, FormatTrack(t))
	}
	return strings.Join(lines, "\n")
}

// RecommendationPrompt asks for count recommendations similar to tracks.
func RecommendationPrompt(tracks []models.Track, count int) string {
	var b strings.Builder

	b.WriteString("Here are my top tracks:\n")
	b.WriteString(FormatTracks(tracks))
	fmt.Fprintf(&b, "\n\nRecommend %d songs similar to these that are not in the list. ", count)
	b.WriteString(`Return them as a JSON array of objects with "song" and "artist" keys.`)

	return b.String()
}

// ParseRecommendations decodes the model's reply. Anything that is not a JSON array of objects with a non-blank
// song and artist fails with [shared.ErrInvalidAIResponse].
func ParseRecommendations(text string) ([]models.Recommendation, error) {
	var raw []*models.Recommendation
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidAIResponse, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: reply is null", shared.ErrInvalidAIResponse)
	}

	recs := make([]models.Recommendation, 0, len(raw))
	for i, rec := range raw {
		if rec == nil {
			return nil, fmt.Errorf("%w: element %d is null", shared.ErrInvalidAIResponse, i)
		}
		song, artist := strings.TrimSpace(rec.Song), strings.TrimSpace(rec.Artist)
		if song == "" || artist == "" {
			return nil, fmt.Errorf("%w: element %d needs song and artist", shared.ErrInvalidAIResponse, i)
		}
		recs = append(recs, models.Recommendation{Song: song, Artist: artist})
	}
	return recs, nil
}

// SearchQuery builds the catalog field query for a recommendation.
func SearchQuery(rec models.Recommendation) string {
	return fmt.Sprintf("track:%s artist:%s", rec.Song, rec.Artist)
}
