package models

import (
	"fmt"
	"strconv"
	"strings"
)

// MediaID is a parsed Stremio content id such as "tt0944947:1:2" or "kitsu:1376:5".
type MediaID struct {
	// Source is the id namespace: imdb, tmdb, tvdb, kitsu, mal, anilist or anidb.
	Source  string
	ID      string
	Season  int // 0 when absent
	Episode int // 0 when absent
}

// IsAnimeSource reports whether the id comes from an anime database, where
// the trailing number is an absolute episode rather than season:episode.
func (m MediaID) IsAnimeSource() bool {
	switch m.Source {
	case "kitsu", "mal", "anilist", "anidb":
		return true
	}
	return false
}

// BaseID returns the id without season or episode components.
func (m MediaID) BaseID() string {
	if m.Source == "imdb" {
		return m.ID
	}
	return m.Source + ":" + m.ID
}

// HasEpisode reports whether an episode was requested.
func (m MediaID) HasEpisode() bool {
	return m.Episode > 0
}

// ParseMediaID parses a Stremio content id.
func ParseMediaID(raw string) (MediaID, error) {
	if raw == "" {
		return MediaID{}, ErrMediaIDRequired
	}

	var (
		id    MediaID
		parts []string
	)
	switch {
	case strings.HasPrefix(raw, "tt"):
		id.Source = "imdb"
		parts = strings.Split(raw, ":")
	default:
		source, rest, ok := strings.Cut(raw, ":")
		if !ok || rest == "" {
			return MediaID{}, fmt.Errorf("%w: %s", ErrUnsupportedMediaID, raw)
		}
		switch source {
		case "tmdb", "tvdb", "kitsu", "mal", "anilist", "anidb":
		default:
			return MediaID{}, fmt.Errorf("%w: %s", ErrUnsupportedMediaID, raw)
		}
		id.Source = source
		parts = strings.Split(rest, ":")
	}

	id.ID = parts[0]
	nums := make([]int, 0, 2)
	for _, p := range parts[1:] {
		n, err := strconv.Atoi(p)
		if err != nil {
			return MediaID{}, fmt.Errorf("%w: invalid number %q in %s", ErrUnsupportedMediaID, p, raw)
		}
		nums = append(nums, n)
	}

	switch {
	case len(nums) == 1 && id.IsAnimeSource():
		id.Episode = nums[0]
	case len(nums) == 1:
		id.Season = nums[0]
	case len(nums) >= 2:
		id.Season, id.Episode = nums[0], nums[1]
	}
	return id, nil
}
