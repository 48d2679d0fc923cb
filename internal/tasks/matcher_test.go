package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/services"
	"github.com/desertthunder/s2d/internal/shared"
	th "github.com/desertthunder/s2d/internal/testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) string
		in   string
		want string
	}{
		{"diacritics", NormalizeName, "Beyoncé", "beyonce"},
		{"ampersand", NormalizeName, "Simon & Garfunkel", "simon and garfunkel"},
		{"punctuation", NormalizeName, "Don't Stop!", "don t stop"},
		{"whitespace", NormalizeName, "  A   B ", "a b"},
		{"feat bracket", NormalizeTitle, "Song (feat. Someone)", "song"},
		{"remaster suffix", NormalizeTitle, "Heroes - 2017 Remaster", "heroes"},
		{"square bracket", NormalizeTitle, "Track [Live]", "track"},
		{"hyphen kept", NormalizeTitle, "Anti-Hero", "anti-hero"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fn(tt.in))
		})
	}
}

func TestSimilarity(t *testing.T) {
	src := models.Track{Name: "Heroes - 2017 Remaster", Artists: []string{"David Bowie"}}

	exact := Similarity(src, services.DeezerTrack{Title: "Heroes", Artist: services.DeezerArtist{Name: "David Bowie"}})
	assert.InDelta(t, 1.0, exact, 0.0001)

	wrongArtist := Similarity(src, services.DeezerTrack{Title: "Heroes", Artist: services.DeezerArtist{Name: "Wallflowers"}})
	assert.Less(t, wrongArtist, exact)

	unrelated := Similarity(src, services.DeezerTrack{Title: "Space Oddity", Artist: services.DeezerArtist{Name: "David Bowie"}})
	assert.Less(t, unrelated, DefaultMatchThreshold)
}

func TestMatcher(t *testing.T) {
	track := models.Track{ID: "s1", Name: "Midnight City", Artists: []string{"M83"}, ISRC: "FR6V81141061"}

	t.Run("ISRC First", func(t *testing.T) {
		dest := th.NewMockDestination()
		dest.ByISRC["FR6V81141061"] = services.DeezerTrack{ID: 7}

		m, err := NewMatcher(dest, 0.8, true).Match(context.Background(), track)
		require.NoError(t, err)
		assert.Equal(t, int64(7), m.DeezerID)
		assert.Equal(t, models.MatchedByISRC, m.MatchedBy)
		assert.Empty(t, dest.Searches)
	})

	t.Run("Search Fallback", func(t *testing.T) {
		dest := th.NewMockDestination()
		dest.Search["Midnight City"] = []services.DeezerTrack{{ID: 8, Title: "Midnight City", Artist: services.DeezerArtist{Name: "M83"}}}

		m, err := NewMatcher(dest, 0.8, true).Match(context.Background(), track)
		require.NoError(t, err)
		assert.Equal(t, int64(8), m.DeezerID)
		assert.Equal(t, models.MatchedBySearch, m.MatchedBy)
		assert.Empty(t, m.Error)
	})

	t.Run("Search Disabled", func(t *testing.T) {
		dest := th.NewMockDestination()
		m, err := NewMatcher(dest, 0.8, false).Match(context.Background(), track)
		require.NoError(t, err)
		assert.False(t, m.Matched())
		assert.Empty(t, dest.Searches)
	})

	t.Run("Below Threshold", func(t *testing.T) {
		dest := th.NewMockDestination()
		dest.Search["Midnight City"] = []services.DeezerTrack{{ID: 9, Title: "Noon Village", Artist: services.DeezerArtist{Name: "Other"}}}

		m, err := NewMatcher(dest, 0.8, true).Match(context.Background(), track)
		require.NoError(t, err)
		assert.False(t, m.Matched())
		assert.Equal(t, "no search result above threshold", m.Error)
	})

	t.Run("Search Error Recorded", func(t *testing.T) {
		dest := th.NewMockDestination()
		dest.SearchErr = shared.ErrAPIRequest

		m, err := NewMatcher(dest, 0.8, true).Match(context.Background(), models.Track{ID: "x", Name: "Song"})
		require.NoError(t, err)
		assert.Contains(t, m.Error, shared.ErrAPIRequest.Error())
	})

	t.Run("Canceled Context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		dest := th.NewMockDestination()
		dest.ISRCErr = context.Canceled
		_, err := NewMatcher(dest, 0.8, true).Match(ctx, track)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Default Threshold", func(t *testing.T) {
		assert.Equal(t, DefaultMatchThreshold, NewMatcher(nil, 0, true).threshold)
		assert.Equal(t, DefaultMatchThreshold, NewMatcher(nil, 1.5, true).threshold)
	})
}
