// Package intent classifies transcripts into the small set of requests the
// assistant answers locally, with everything else going to the language model.
package intent

import "strings"

// Kind identifies what the user asked for.
type Kind int

const (
	OpenDomain Kind = iota
	TimeQuery
	DateQuery
	SystemStatsQuery
	JokeRequest
)

// String returns the kind name used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case TimeQuery:
		return "time"
	case DateQuery:
		return "date"
	case SystemStatsQuery:
		return "system_stats"
	case JokeRequest:
		return "joke"
	default:
		return "open_domain"
	}
}

// Intent is a routed transcript. Text is only meaningful for OpenDomain.
type Intent struct {
	Kind Kind
	Text string
}

// Keyword maps a lowercase substring to a Kind.
type Keyword struct {
	Match string
	Kind  Kind
}

// DefaultKeywords is checked in order; the first match wins.
var DefaultKeywords = []Keyword{
	{Match: "time", Kind: TimeQuery},
	{Match: "date", Kind: DateQuery},
	{Match: "cpu", Kind: SystemStatsQuery},
	{Match: "joke", Kind: JokeRequest},
}

// Router maps transcripts to intents. It is immutable and safe for concurrent use.
type Router struct {
	keywords []Keyword
}

// Option configures a Router.
type Option func(*Router)

// WithKeywords replaces the keyword table. Entries are lowercased.
func WithKeywords(keywords []Keyword) Option {
	return func(r *Router) {
		r.keywords = make([]Keyword, 0, len(keywords))
		for _, k := range keywords {
			if k.Match == "" {
				continue
			}
			r.keywords = append(r.keywords, Keyword{Match: strings.ToLower(k.Match), Kind: k.Kind})
		}
	}
}

// NewRouter creates a router over DefaultKeywords unless overridden.
func NewRouter(opts ...Option) *Router {
	r := &Router{keywords: append([]Keyword(nil), DefaultKeywords...)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route classifies transcript. It never fails: the empty transcript and any
// transcript without a keyword are OpenDomain.
func (r *Router) Route(transcript string) Intent {
	lower := strings.ToLower(transcript)
	for _, k := range r.keywords {
		if strings.Contains(lower, k.Match) {
			return Intent{Kind: k.Kind}
		}
	}
	return Intent{Kind: OpenDomain, Text: transcript}
}
