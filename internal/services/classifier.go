package services

import (
	"strings"

	"github.com/bobarin/trendcast/internal/models"
)

// Keyword lists are matched as lowercase substrings. Order matters: a trend
// that hits a risky keyword is skipped even if it also names a sport.
var (
	riskyKeywords = []string{
		// politics
		"election", "president", "prime minister", "senate", "congress",
		"parliament", "vote", "voting", "ballot", "campaign", "republican",
		"democrat", "gop",
		// violence
		"war", "conflict", "battle", "attack", "bomb", "shooting", "genocide",
		"terror", "hostage",
		// legal
		"arrest", "crime", "lawsuit", "trial", "court",
	}

	sportKeywords = []string{
		"nfl", "nba", "mlb", "nhl", "ufc", "soccer", "football", "basketball",
		"baseball", "fifa", "world cup", "super bowl", "champions league",
		"tennis", "wimbledon", "olympics",
	}

	entertainmentKeywords = []string{
		"movie", "film", "trailer", "actor", "actress", "show", "series",
		"episode", "album", "song", "music", "concert", "tour", "festival",
		"oscars", "grammys", "emmys",
	}
)

// ClassifyTrend labels a trend skip, sports, entertainment or general.
// An empty trend is general.
func ClassifyTrend(trend string) models.Category {
	t := strings.ToLower(strings.TrimSpace(trend))
	if t == "" {
		return models.CategoryGeneral
	}

	switch {
	case containsAny(t, riskyKeywords):
		return models.CategorySkip
	case containsAny(t, sportKeywords):
		return models.CategorySports
	case containsAny(t, entertainmentKeywords):
		return models.CategoryEntertainment
	default:
		return models.CategoryGeneral
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
