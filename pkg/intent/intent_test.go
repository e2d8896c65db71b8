package intent

import "testing"

func TestRoute(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		want       Kind
	}{
		{"time", "What time is it?", TimeQuery},
		{"date", "what's today's DATE", DateQuery},
		{"cpu", "How is the CPU doing", SystemStatsQuery},
		{"joke", "tell me a joke", JokeRequest},
		{"substring", "sometimes I wonder", TimeQuery},
		{"first entry wins", "tell me a joke about time", TimeQuery},
		{"date before cpu", "cpu usage by date", DateQuery},
		{"open domain", "who wrote hamlet", OpenDomain},
		{"empty", "", OpenDomain},
	}

	r := NewRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Route(tt.transcript)
			if got.Kind != tt.want {
				t.Errorf("Route(%q) = %s, want %s", tt.transcript, got.Kind, tt.want)
			}
		})
	}
}

func TestRouteOpenDomainKeepsText(t *testing.T) {
	got := NewRouter().Route("Who Wrote Hamlet")
	if got.Text != "Who Wrote Hamlet" {
		t.Errorf("expected original transcript, got %q", got.Text)
	}
}

func TestRouteDeterministic(t *testing.T) {
	r := NewRouter()
	first := r.Route("a joke about the cpu")
	for i := 0; i < 100; i++ {
		if got := r.Route("a joke about the cpu"); got != first {
			t.Fatalf("iteration %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestWithKeywords(t *testing.T) {
	r := NewRouter(WithKeywords([]Keyword{
		{Match: "Weather", Kind: SystemStatsQuery},
		{Match: "", Kind: JokeRequest},
	}))

	if got := r.Route("what's the weather"); got.Kind != SystemStatsQuery {
		t.Errorf("expected custom keyword match, got %s", got.Kind)
	}
	if got := r.Route("what time is it"); got.Kind != OpenDomain {
		t.Errorf("default table should be replaced, got %s", got.Kind)
	}
	if got := r.Route(""); got.Kind != OpenDomain {
		t.Errorf("empty keyword must not match everything, got %s", got.Kind)
	}
}

func TestKindString(t *testing.T) {
	if SystemStatsQuery.String() != "system_stats" || OpenDomain.String() != "open_domain" {
		t.Error("unexpected kind names")
	}
}
