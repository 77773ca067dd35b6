package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMediaID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    MediaID
		wantErr error
	}{
		{"imdb movie", "tt0111161", MediaID{Source: "imdb", ID: "tt0111161"}, nil},
		{"imdb episode", "tt0944947:1:2", MediaID{Source: "imdb", ID: "tt0944947", Season: 1, Episode: 2}, nil},
		{"imdb season only", "tt0944947:3", MediaID{Source: "imdb", ID: "tt0944947", Season: 3}, nil},
		{"kitsu absolute episode", "kitsu:1376:5", MediaID{Source: "kitsu", ID: "1376", Episode: 5}, nil},
		{"kitsu season episode", "kitsu:1376:2:5", MediaID{Source: "kitsu", ID: "1376", Season: 2, Episode: 5}, nil},
		{"tmdb", "tmdb:603", MediaID{Source: "tmdb", ID: "603"}, nil},
		{"empty", "", MediaID{}, ErrMediaIDRequired},
		{"unknown source", "foo:1", MediaID{}, ErrUnsupportedMediaID},
		{"bad number", "tt1:x", MediaID{}, ErrUnsupportedMediaID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMediaID(tt.input)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMediaID_BaseID(t *testing.T) {
	id, err := ParseMediaID("kitsu:1376:5")
	require.NoError(t, err)
	assert.Equal(t, "kitsu:1376", id.BaseID())
	assert.True(t, id.IsAnimeSource())
	assert.True(t, id.HasEpisode())

	id, err = ParseMediaID("tt0944947:1:2")
	require.NoError(t, err)
	assert.Equal(t, "tt0944947", id.BaseID())
	assert.False(t, id.IsAnimeSource())
}
