package bot

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"dab-tg-bot/internal/dab"
)

const suggestThreshold = 0.6

// suggest picks the closest entry from the user's last search when the
// requested id matched nothing, so a typo gets a pointer instead of a
// bare rejection. Compares against both ids and "artist title" strings.
func suggest(arg string, tracks []dab.Track) (dab.Track, bool) {
	jw := metrics.NewJaroWinkler()
	needle := strings.ToLower(arg)

	var best dab.Track
	var bestScore float64
	for _, t := range tracks {
		score := strutil.Similarity(needle, strings.ToLower(t.ID.String()), jw)
		if byName := strutil.Similarity(needle, strings.ToLower(t.Artist+" "+t.Title), jw); byName > score {
			score = byName
		}
		if score > bestScore {
			bestScore = score
			best = t
		}
	}

	if bestScore < suggestThreshold {
		return dab.Track{}, false
	}
	return best, true
}
