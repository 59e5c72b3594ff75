package domain

import "time"

// Click is an append-only visit record. Seq is the storage insertion order and
// breaks ties between clicks that share a timestamp.
type Click struct {
	ClickID   string    `json:"click_id"`
	Seq       int64     `json:"-"`
	LinkID    string    `json:"link_id"`
	ClickedAt time.Time `json:"clicked_at"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Referer   string    `json:"referer"`
	Country   *string   `json:"country,omitempty"`
}

type RequestMetadata struct {
	IPAddress string
	UserAgent string
	Referer   string
	Country   string
}

// ResolveAttribution picks the last click of linkID inside [asOf-window, asOf].
// Later timestamps win; equal timestamps fall back to the higher Seq.
func ResolveAttribution(clicks []Click, linkID string, window time.Duration, asOf time.Time) (Click, bool) {
	from := asOf.Add(-window)
	var (
		best  Click
		found bool
	)
	for _, c := range clicks {
		if c.LinkID != linkID {
			continue
		}
		if c.ClickedAt.Before(from) || c.ClickedAt.After(asOf) {
			continue
		}
		if !found || c.ClickedAt.After(best.ClickedAt) || (c.ClickedAt.Equal(best.ClickedAt) && c.Seq > best.Seq) {
			best = c
			found = true
		}
	}
	return best, found
}
