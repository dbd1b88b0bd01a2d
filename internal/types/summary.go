package types

// UpdateSummary counts what one aggregator update did.
type UpdateSummary struct {
	Feeds      int      `json:"feeds"`
	FeedErrors int      `json:"feed_errors"`
	Added      int      `json:"added"`
	Updated    int      `json:"updated"`
	Unchanged  int      `json:"unchanged"`
	Failed     int      `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}

// Total returns the number of articles seen across all feeds.
func (s UpdateSummary) Total() int {
	return s.Added + s.Updated + s.Unchanged + s.Failed
}
