package tasks

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/agext/levenshtein"
	"golang.org/x/text/unicode/norm"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/services"
	"github.com/desertthunder/s2d/internal/shared"
)

// DefaultMatchThreshold is the minimum similarity accepted for search matches.
const DefaultMatchThreshold = 0.8

var (
	reBracketed  = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	reVersionTag = regexp.MustCompile(`\s+-\s+.*(remaster|version|edit|mix|live|mono|stereo).*$`)
	rePunct      = regexp.MustCompile(`[.,:;{}'"!?&/]`)
)

// Matcher finds the Deezer equivalent of a Spotify track.
type Matcher struct {
	dest           services.TrackDestination
	threshold      float64
	searchFallback bool
}

// NewMatcher creates a matcher. A threshold outside (0, 1] falls back to [DefaultMatchThreshold].
func NewMatcher(dest services.TrackDestination, threshold float64, searchFallback bool) *Matcher {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultMatchThreshold
	}
	return &Matcher{dest: dest, threshold: threshold, searchFallback: searchFallback}
}

// Match looks t up by ISRC, then by title and artist search.
//
// Lookup failures are recorded on the returned match. Only context errors and
// rate limiting are returned, since continuing would fail every remaining track.
func (m *Matcher) Match(ctx context.Context, t models.Track) (models.TrackMatch, error) {
	match := models.TrackMatch{
		SpotifyID: t.ID,
		ISRC:      t.ISRC,
		Title:     t.Name,
		Artist:    t.Artist(),
	}

	if t.ISRC != "" {
		found, err := m.dest.TrackByISRC(ctx, t.ISRC)
		switch {
		case err == nil:
			match.DeezerID = found.ID
			match.MatchedBy = models.MatchedByISRC
			match.Score = 1
			return match, nil
		case fatal(ctx, err):
			return match, err
		case !errors.Is(err, shared.ErrTrackNotFound):
			match.Error = err.Error()
		}
	}

	if !m.searchFallback {
		if match.Error == "" {
			match.Error = "no ISRC match"
		}
		return match, nil
	}

	candidates, err := m.dest.SearchTracks(ctx, t.Name, t.PrimaryArtist())
	if err != nil {
		if fatal(ctx, err) {
			return match, err
		}
		match.Error = err.Error()
		return match, nil
	}

	best, score := m.best(t, candidates)
	if best == nil {
		match.Error = "no search result above threshold"
		return match, nil
	}

	match.DeezerID = best.ID
	match.MatchedBy = models.MatchedBySearch
	match.Score = score
	match.Error = ""
	return match, nil
}

// best returns the highest scoring candidate at or above the threshold.
func (m *Matcher) best(t models.Track, candidates []services.DeezerTrack) (*services.DeezerTrack, float64) {
	var (
		best      *services.DeezerTrack
		bestScore float64
	)
	for i := range candidates {
		score := Similarity(t, candidates[i])
		if score >= m.threshold && score > bestScore {
			best, bestScore = &candidates[i], score
		}
	}
	return best, bestScore
}

// Similarity scores a candidate against a source track in [0, 1].
//
// Title similarity weighs 70%, the best artist similarity 30%.
func Similarity(t models.Track, c services.DeezerTrack) float64 {
	title := levenshtein.Similarity(NormalizeTitle(t.Name), NormalizeTitle(c.Title), nil)

	candidateArtist := NormalizeName(c.Artist.Name)
	artist := 0.0
	for _, a := range t.Artists {
		artist = max(artist, levenshtein.Similarity(NormalizeName(a), candidateArtist, nil))
	}
	if len(t.Artists) == 0 {
		artist = title
	}

	return 0.7*title + 0.3*artist
}

// NormalizeName lowercases s, strips diacritics and punctuation and collapses whitespace.
func NormalizeName(s string) string {
	s = strings.ToLower(stripDiacritics(s))
	s = strings.ReplaceAll(s, "&", " and ")
	s = rePunct.ReplaceAllString(s, " ")
	return shared.NormalizeText(s)
}

// NormalizeTitle is [NormalizeName] with bracketed qualifiers and version suffixes removed,
// so "Song (feat. X) - 2011 Remaster" compares equal to "Song".
func NormalizeTitle(s string) string {
	s = strings.ToLower(s)
	s = reVersionTag.ReplaceAllString(s, "")
	s = reBracketed.ReplaceAllString(s, " ")
	return NormalizeName(s)
}

func stripDiacritics(s string) string {
	t := norm.NFD.String(s)
	out := make([]rune, 0, len(t))
	for _, r := range t {
		if unicode.IsMark(r) {
			continue
		}
		out = append(out, r)
	}
	return string(out)
}

func fatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, shared.ErrRateLimited) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
