package net

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	server "emberfall/server"
	"emberfall/server/internal/net/proto"
)

func newTestHandler(t *testing.T) (http.Handler, *server.Hub) {
	t.Helper()
	hub := server.NewHub(server.HubConfig{})
	return NewHTTPHandler(hub, HTTPHandlerConfig{}), hub
}

func TestHealthEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}
	if rec.Body.String() != "ok" {
		t.Fatalf("health body %q", rec.Body.String())
	}
}

func TestJoinEndpoint(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/join", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("join returned %d: %s", rec.Code, rec.Body.String())
	}

	var response proto.JoinResponseV1
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("join response is not valid JSON: %v", err)
	}
	if response.Ver != proto.Version {
		t.Fatalf("join response version %d", response.Ver)
	}
	if response.ID == "" {
		t.Fatalf("join response missing the player id")
	}
	if len(response.Shop) == 0 {
		t.Fatalf("join response missing the shop catalog")
	}
	for i, item := range response.Shop {
		if item.Index != i {
			t.Fatalf("shop item %d carries index %d", i, item.Index)
		}
	}
	if response.Invasion != nil {
		t.Fatalf("no invasion is running, join reported one")
	}
}

func TestJoinRejectsNonPost(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/join", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /join returned %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestDiagnosticsEndpoint(t *testing.T) {
	handler, hub := newTestHandler(t)
	hub.Join()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("diagnostics returned %d", rec.Code)
	}

	var payload struct {
		Status   string                     `json:"status"`
		TickRate int                        `json:"tickRate"`
		Players  []server.DiagnosticsPlayer `json:"players"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("diagnostics payload is not valid JSON: %v", err)
	}
	if payload.Status != "ok" {
		t.Fatalf("diagnostics status %q", payload.Status)
	}
	if payload.TickRate != hub.TickRate() {
		t.Fatalf("diagnostics tick rate %d, want %d", payload.TickRate, hub.TickRate())
	}
	if len(payload.Players) != 1 {
		t.Fatalf("diagnostics shows %d players, want 1", len(payload.Players))
	}
}

func TestWebsocketRequiresPlayerID(t *testing.T) {
	handler, _ := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("/ws without id returned %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
