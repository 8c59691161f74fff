package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/metaestate/showroom/backend/listing"
	"github.com/metaestate/showroom/backend/model"
	"github.com/metaestate/showroom/backend/registry"
	"github.com/metaestate/showroom/backend/router"
	"github.com/metaestate/showroom/backend/service"
	"github.com/rs/zerolog"
)

func newTestAPI(t *testing.T) (*httptest.Server, *registry.Registry, *listing.Listing) {
	t.Helper()
	logger := zerolog.Nop()
	reg := registry.New()
	lst := listing.New()
	svc := service.New(service.Config{
		Registry: reg,
		Router:   router.New(&logger),
		Listing:  lst,
		Logger:   &logger,
	})
	srv := NewServer(Config{Logger: &logger, StateReader: svc, ListenAddr: ":0"})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts, reg, lst
}

func getJSON(t *testing.T, url string, v any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d, want 200", url, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type = %q, want application/json", ct)
	}
	if err = json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestPlayersEndpoint(t *testing.T) {
	ts, reg, _ := newTestAPI(t)
	p := reg.Register("c1")

	var players map[string]model.Participant
	getJSON(t, ts.URL+"/api/players", &players)

	if len(players) != 1 {
		t.Fatalf("players = %d entries, want 1", len(players))
	}
	if players["c1"].Name != p.Name || players["c1"].Role != model.RoleBroker {
		t.Errorf("players[c1] = %+v, want registered broker", players["c1"])
	}
}

func TestListingEndpoint(t *testing.T) {
	ts, _, lst := newTestAPI(t)
	lst.Sell()
	lst.SetPreset("dawn")

	var state model.ListingState
	getJSON(t, ts.URL+"/api/listing", &state)

	if state.Status != model.StatusSold || state.Preset != "dawn" {
		t.Errorf("listing = %+v, want SOLD with dawn preset", state)
	}
}

func TestEndpointsAreGetOnly(t *testing.T) {
	ts, _, _ := newTestAPI(t)
	resp, err := http.Post(ts.URL+"/api/players", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST status = %d, want 405", resp.StatusCode)
	}
}
