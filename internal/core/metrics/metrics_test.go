package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	m := New(func() Stats {
		return Stats{Capacity: 8, Connected: 3, LoggedIn: 2, ActiveGames: 1, Waiting: 0}
	})
	m.MessageDispatched("user")
	m.MessageDispatched("user")
	m.Disconnected("NOT_LOGGED_IN")
	m.MatchFormed()

	if got := testutil.ToFloat64(m.messages.WithLabelValues("user")); got != 2 {
		t.Errorf("expected 2 user messages, got %v", got)
	}
	if got := testutil.ToFloat64(m.disconnects.WithLabelValues("NOT_LOGGED_IN")); got != 1 {
		t.Errorf("expected 1 NOT_LOGGED_IN disconnect, got %v", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		"hoo_sessions_connected 3",
		"hoo_games_active 1",
		"hoo_matches_total 1",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected exposition to contain %q", want)
		}
	}
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	m.MessageDispatched("user")
	m.Disconnected("NONE")
	m.MatchFormed()
}
