package ping

// Status codes of a slug's ping state.
const (
	CodeNoPingsYet    = "no_pings_yet"
	CodeSucceeded     = "succeeded"
	CodeNoGoogle      = "no_google"
	CodeNoBing        = "no_bing"
	CodeFailed        = "failed"
	CodeAutomaticPing = "automatic_ping"
)

// State is the persisted ping outcome of one sitemap slug. The code names
// which engines still need a retry: "no_google"/"no_bing" after a partial
// failure, "failed" when every ping failed.
type State struct {
	SitemapSlug string `json:"sitemap_slug"`
	Code        string `json:"code"`
	LatestTime  int64  `json:"latest_time"`
}

func NewState(slug string) *State {
	return &State{
		SitemapSlug: slug,
		Code:        CodeNoPingsYet,
	}
}

// Response is the outcome of one engine ping. Status holds the HTTP status
// code as text, or an error message when the request never completed.
type Response struct {
	Engine string
	Status string
	Time   int64
}

// Update folds the responses of one ping round into the state. A lone
// failure records which engine to retry; a failure on top of an earlier
// one within the round marks the whole round failed.
func (s *State) Update(responses []Response) {
	previousFailed := false

	for _, response := range responses {
		if response.Status == "200" {
			s.LatestTime = response.Time
			if !previousFailed {
				s.Code = CodeSucceeded
			}
		} else if previousFailed {
			s.Code = CodeFailed
		} else {
			previousFailed = true
			s.Code = "no_" + response.Engine
		}
	}
}
