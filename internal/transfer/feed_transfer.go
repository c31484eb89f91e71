package transfer

import "time"

// FeedFilter selects one of the mutually exclusive timeline modes. It
// is compiled into SQL in one place per strategy rather than scattered
// across query call sites.
type FeedFilter string

const (
	FilterFediverse         FeedFilter = "fediverse"
	FilterLocal             FeedFilter = "local"
	FilterWithoutShares     FeedFilter = "withoutShares"
	FilterArticlesOnly      FeedFilter = "articlesOnly"
	FilterMentionsAndQuotes FeedFilter = "mentionsAndQuotes"
	FilterRecommendations   FeedFilter = "recommendations"
)

// ParseFeedFilter maps the query-string value to a filter, falling
// back to the full fediverse feed. The signed-in-only modes are
// rejected for anonymous viewers.
func ParseFeedFilter(s string, signedIn bool) FeedFilter {
	switch FeedFilter(s) {
	case FilterLocal, FilterWithoutShares, FilterArticlesOnly:
		return FeedFilter(s)
	case FilterMentionsAndQuotes, FilterRecommendations:
		if signedIn {
			return FeedFilter(s)
		}
	}
	return FilterFediverse
}

type FeedQuery struct {
	Filter    FeedFilter
	Until     time.Time // zero means "from now"
	Window    int
	Languages []string
}
