package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"loothound/internal/app"
	"loothound/internal/game"
	"loothound/internal/geom"
	"loothound/internal/records"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// mockGame implements GameInterface with function fields so each test pins
// exactly the behavior it needs. Nil fields fall back to benign defaults.
type mockGame struct {
	joinFunc      func(userName, mapID string) (app.JoinResult, error)
	authorizeFunc func(token string) error
	playersFunc   func(token string) ([]app.PlayerInfo, error)
	stateFunc     func(token string) (app.StateView, error)
	moveFunc      func(token string, dir game.Direction, stop bool) error
	tickFunc      func(delta time.Duration) error
	manualTicks   bool
	gameMaps      []*game.Map
}

func (m *mockGame) Join(userName, mapID string) (app.JoinResult, error) {
	if m.joinFunc == nil {
		return app.JoinResult{}, nil
	}
	return m.joinFunc(userName, mapID)
}

func (m *mockGame) Authorize(token string) error {
	if m.authorizeFunc == nil {
		return nil
	}
	return m.authorizeFunc(token)
}

func (m *mockGame) Players(token string) ([]app.PlayerInfo, error) {
	if m.playersFunc == nil {
		return []app.PlayerInfo{}, nil
	}
	return m.playersFunc(token)
}

func (m *mockGame) State(token string) (app.StateView, error) {
	if m.stateFunc == nil {
		return app.StateView{}, nil
	}
	return m.stateFunc(token)
}

func (m *mockGame) Move(token string, dir game.Direction, stop bool) error {
	if m.moveFunc == nil {
		return nil
	}
	return m.moveFunc(token, dir, stop)
}

func (m *mockGame) ManualTick(delta time.Duration) error {
	if m.tickFunc == nil {
		return nil
	}
	return m.tickFunc(delta)
}

func (m *mockGame) ManualTickEnabled() bool { return m.manualTicks }

func (m *mockGame) Maps() []*game.Map { return m.gameMaps }

func (m *mockGame) FindMap(id string) *game.Map {
	for _, gm := range m.gameMaps {
		if gm.ID == id {
			return gm
		}
	}
	return nil
}

// mockRecords implements RecordsInterface.
type mockRecords struct {
	pageFunc func(ctx context.Context, start, maxItems int) ([]records.Record, error)
}

func (m *mockRecords) Page(ctx context.Context, start, maxItems int) ([]records.Record, error) {
	return m.pageFunc(ctx, start, maxItems)
}

// ============================================================================
// Test Fixtures
// ============================================================================

const testToken = "0123456789abcdef0123456789abcdef"

func fixtureMaps() []*game.Map {
	town := game.NewMap("town", "Town",
		[]game.Road{
			game.NewHorizontalRoad(0, 0, 40),
			game.NewVerticalRoad(40, 0, 30),
		},
		[]game.Building{{X: 5, Y: 5, W: 10, H: 8}},
		[]game.Office{{ID: "o0", Position: geom.Point{X: 40, Y: 30}, Offset: geom.Offset{DX: 5, DY: 0}}},
		[]game.LootType{
			{Value: 10, Raw: json.RawMessage(`{"name":"key","value":10}`)},
			{Value: 30, Raw: json.RawMessage(`{"name":"wallet","value":30}`)},
		},
		4, 3)
	square := game.NewMap("square", "Square",
		[]game.Road{game.NewHorizontalRoad(0, 0, 10)},
		nil, nil, nil, 2, 3)
	return []*game.Map{town, square}
}

func newTestServer(t *testing.T, g GameInterface, rec RecordsInterface) *httptest.Server {
	t.Helper()
	router := NewRouter(RouterConfig{
		Game:           g,
		Records:        rec,
		DisableLogging: true,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1000,
			Burst:             1000,
			CleanupInterval:   time.Hour,
		},
	})
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decodeErrorBody(t *testing.T, resp *http.Response) errorBody {
	t.Helper()
	var e errorBody
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return e
}

func doJSON(t *testing.T, method, url, contentType, body string, header map[string]string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// ============================================================================
// Maps Endpoints
// ============================================================================

func TestMapsList(t *testing.T) {
	ts := newTestServer(t, &mockGame{gameMaps: fixtureMaps()}, nil)

	resp, err := http.Get(ts.URL + "/api/v1/maps")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var got []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got) != 2 || got[0].ID != "town" || got[0].Name != "Town" || got[1].ID != "square" {
		t.Errorf("maps = %+v, want town then square", got)
	}
}

func TestMapByID(t *testing.T) {
	ts := newTestServer(t, &mockGame{gameMaps: fixtureMaps()}, nil)

	resp, err := http.Get(ts.URL + "/api/v1/maps/town")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	var roads []map[string]float64
	if err := json.Unmarshal(got["roads"], &roads); err != nil {
		t.Fatalf("decoding roads: %v", err)
	}
	if len(roads) != 2 {
		t.Fatalf("got %d roads, want 2", len(roads))
	}
	// A horizontal road carries x1 and no y1; vertical the other way round.
	if _, ok := roads[0]["x1"]; !ok {
		t.Errorf("horizontal road missing x1: %v", roads[0])
	}
	if _, ok := roads[0]["y1"]; ok {
		t.Errorf("horizontal road must not carry y1: %v", roads[0])
	}
	if roads[1]["y1"] != 30 {
		t.Errorf("vertical road y1 = %v, want 30", roads[1]["y1"])
	}

	var offices []map[string]interface{}
	if err := json.Unmarshal(got["offices"], &offices); err != nil {
		t.Fatalf("decoding offices: %v", err)
	}
	if offices[0]["offsetX"] != 5.0 {
		t.Errorf("office offsetX = %v, want 5", offices[0]["offsetX"])
	}

	// Loot types pass through exactly as configured.
	var lootTypes []map[string]interface{}
	if err := json.Unmarshal(got["lootTypes"], &lootTypes); err != nil {
		t.Fatalf("decoding lootTypes: %v", err)
	}
	if len(lootTypes) != 2 || lootTypes[0]["name"] != "key" || lootTypes[1]["value"] != 30.0 {
		t.Errorf("lootTypes = %v, want raw key/wallet entries", lootTypes)
	}
}

func TestMapByIDNotFound(t *testing.T) {
	ts := newTestServer(t, &mockGame{gameMaps: fixtureMaps()}, nil)

	resp, err := http.Get(ts.URL + "/api/v1/maps/nowhere")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	e := decodeErrorBody(t, resp)
	if e.Code != "mapNotFound" || e.Message != "Map not found" {
		t.Errorf("error = %+v", e)
	}
}

func TestMapsHead(t *testing.T) {
	ts := newTestServer(t, &mockGame{gameMaps: fixtureMaps()}, nil)

	get, err := http.Get(ts.URL + "/api/v1/maps")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	body, _ := io.ReadAll(get.Body)
	get.Body.Close()

	head, err := http.Head(ts.URL + "/api/v1/maps")
	if err != nil {
		t.Fatalf("HEAD failed: %v", err)
	}
	defer head.Body.Close()

	if head.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", head.StatusCode)
	}
	if head.ContentLength != int64(len(body)) {
		t.Errorf("HEAD Content-Length = %d, want %d", head.ContentLength, len(body))
	}
	rest, _ := io.ReadAll(head.Body)
	if len(rest) != 0 {
		t.Errorf("HEAD carried a body: %q", rest)
	}
}

// ============================================================================
// Join
// ============================================================================

func TestJoinSuccess(t *testing.T) {
	var gotName, gotMap string
	mock := &mockGame{
		joinFunc: func(userName, mapID string) (app.JoinResult, error) {
			gotName, gotMap = userName, mapID
			return app.JoinResult{Token: testToken, PlayerID: 3}, nil
		},
	}
	ts := newTestServer(t, mock, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/join",
		"application/json", `{"userName":"Scruffy","mapId":"town"}`, nil)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got struct {
		AuthToken string `json:"authToken"`
		PlayerID  int    `json:"playerId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.AuthToken != testToken || got.PlayerID != 3 {
		t.Errorf("join response = %+v", got)
	}
	if gotName != "Scruffy" || gotMap != "town" {
		t.Errorf("join args = (%q, %q)", gotName, gotMap)
	}
}

func TestJoinValidation(t *testing.T) {
	mock := &mockGame{
		joinFunc: func(userName, mapID string) (app.JoinResult, error) {
			if mapID != "town" {
				return app.JoinResult{}, game.ErrMapNotFound
			}
			return app.JoinResult{Token: testToken, PlayerID: 1}, nil
		},
	}
	ts := newTestServer(t, mock, nil)

	tests := []struct {
		name        string
		contentType string
		body        string
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "wrong content type",
			contentType: "text/plain",
			body:        `{"userName":"Rex","mapId":"town"}`,
			wantStatus:  http.StatusBadRequest,
			wantCode:    "invalidArgument",
			wantMessage: "Invalid content type",
		},
		{
			name:        "content type with charset",
			contentType: "application/json; charset=utf-8",
			body:        `{"userName":"Rex","mapId":"town"}`,
			wantStatus:  http.StatusBadRequest,
			wantCode:    "invalidArgument",
			wantMessage: "Invalid content type",
		},
		{
			name:        "malformed json",
			contentType: "application/json",
			body:        `{"userName":"Rex"`,
			wantStatus:  http.StatusBadRequest,
			wantCode:    "invalidArgument",
			wantMessage: "Join game request parse error",
		},
		{
			name:        "missing userName",
			contentType: "application/json",
			body:        `{"mapId":"town"}`,
			wantStatus:  http.StatusBadRequest,
			wantCode:    "invalidArgument",
			wantMessage: "Missing required fields",
		},
		{
			name:        "missing mapId",
			contentType: "application/json",
			body:        `{"userName":"Rex"}`,
			wantStatus:  http.StatusBadRequest,
			wantCode:    "invalidArgument",
			wantMessage: "Missing required fields",
		},
		{
			name:        "empty name",
			contentType: "application/json",
			body:        `{"userName":"","mapId":"town"}`,
			wantStatus:  http.StatusBadRequest,
			wantCode:    "invalidArgument",
			wantMessage: "Invalid name",
		},
		{
			name:        "unknown map",
			contentType: "application/json",
			body:        `{"userName":"Rex","mapId":"nowhere"}`,
			wantStatus:  http.StatusNotFound,
			wantCode:    "mapNotFound",
			wantMessage: "Map not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/join", tt.contentType, tt.body, nil)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			e := decodeErrorBody(t, resp)
			if e.Code != tt.wantCode || e.Message != tt.wantMessage {
				t.Errorf("error = %+v, want {%s %s}", e, tt.wantCode, tt.wantMessage)
			}
		})
	}
}

// ============================================================================
// Authorization
// ============================================================================

func TestAuthorizationMatrix(t *testing.T) {
	mock := &mockGame{
		authorizeFunc: func(token string) error {
			if strings.EqualFold(token, testToken) {
				return nil
			}
			return app.ErrUnknownToken
		},
	}
	ts := newTestServer(t, mock, nil)

	tests := []struct {
		name        string
		header      string
		wantStatus  int
		wantCode    string
		wantMessage string
	}{
		{
			name:        "missing header",
			header:      "",
			wantStatus:  http.StatusUnauthorized,
			wantCode:    "invalidToken",
			wantMessage: "Authorization header is required",
		},
		{
			name:        "not bearer",
			header:      "Basic dXNlcjpwYXNz",
			wantStatus:  http.StatusUnauthorized,
			wantCode:    "invalidToken",
			wantMessage: "Invalid authorization format",
		},
		{
			name:        "lowercase scheme",
			header:      "bearer " + testToken,
			wantStatus:  http.StatusUnauthorized,
			wantCode:    "invalidToken",
			wantMessage: "Invalid authorization format",
		},
		{
			name:        "too short",
			header:      "Bearer deadbeef",
			wantStatus:  http.StatusUnauthorized,
			wantCode:    "invalidToken",
			wantMessage: "Invalid token length",
		},
		{
			name:        "too long",
			header:      "Bearer " + testToken + "0",
			wantStatus:  http.StatusUnauthorized,
			wantCode:    "invalidToken",
			wantMessage: "Invalid token length",
		},
		{
			name:        "not hex",
			header:      "Bearer " + strings.Repeat("g", 32),
			wantStatus:  http.StatusUnauthorized,
			wantCode:    "invalidToken",
			wantMessage: "Invalid token format",
		},
		{
			name:        "unknown token",
			header:      "Bearer " + strings.Repeat("0", 32),
			wantStatus:  http.StatusUnauthorized,
			wantCode:    "unknownToken",
			wantMessage: "Player token has not been found",
		},
		{
			name:       "valid lowercase",
			header:     "Bearer " + testToken,
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid uppercase",
			header:     "Bearer " + strings.ToUpper(testToken),
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := map[string]string{}
			if tt.header != "" {
				header["Authorization"] = tt.header
			}
			resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/game/state", "", "", header)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantCode != "" {
				e := decodeErrorBody(t, resp)
				if e.Code != tt.wantCode || e.Message != tt.wantMessage {
					t.Errorf("error = %+v, want {%s %s}", e, tt.wantCode, tt.wantMessage)
				}
			}
		})
	}
}

// ============================================================================
// Players and State
// ============================================================================

func TestPlayersList(t *testing.T) {
	mock := &mockGame{
		playersFunc: func(token string) ([]app.PlayerInfo, error) {
			return []app.PlayerInfo{{ID: 1, Name: "Rex"}, {ID: 12, Name: "Pug"}}, nil
		},
	}
	ts := newTestServer(t, mock, nil)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/game/players", "", "",
		map[string]string{"Authorization": "Bearer " + testToken})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got map[string]struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got) != 2 || got["1"].Name != "Rex" || got["12"].Name != "Pug" {
		t.Errorf("players = %v", got)
	}
}

func TestStateShape(t *testing.T) {
	mock := &mockGame{
		stateFunc: func(token string) (app.StateView, error) {
			return app.StateView{
				Players: []app.PlayerState{{
					ID:    7,
					Name:  "Rex",
					Pos:   geom.Point{X: 1.2345678, Y: 0},
					Speed: geom.Speed{VX: 0, VY: -4},
					Dir:   game.West,
					Bag:   []game.Loot{{ID: 5, Type: 1, Value: 30}},
					Score: 42,
				}},
				Loots: []app.LootState{{ID: 2, Type: 1, Pos: geom.Point{X: 10.5, Y: 3.25}}},
			}, nil
		},
	}
	ts := newTestServer(t, mock, nil)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/game/state", "", "",
		map[string]string{"Authorization": "Bearer " + testToken})

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got struct {
		Players map[string]struct {
			Pos   []float64 `json:"pos"`
			Speed []float64 `json:"speed"`
			Dir   string    `json:"dir"`
			Bag   []struct {
				ID   int `json:"id"`
				Type int `json:"type"`
			} `json:"bag"`
			Score int `json:"score"`
		} `json:"players"`
		LostObjects map[string]struct {
			Type int       `json:"type"`
			Pos  []float64 `json:"pos"`
		} `json:"lostObjects"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}

	p, ok := got.Players["7"]
	if !ok {
		t.Fatalf("players = %v, want key \"7\"", got.Players)
	}
	if p.Pos[0] != 1.234568 || p.Pos[1] != 0 {
		t.Errorf("pos = %v, want [1.234568 0] after rounding", p.Pos)
	}
	if p.Speed[1] != -4 {
		t.Errorf("speed = %v", p.Speed)
	}
	if p.Dir != "L" {
		t.Errorf("dir = %q, want L", p.Dir)
	}
	if len(p.Bag) != 1 || p.Bag[0].ID != 5 || p.Bag[0].Type != 1 {
		t.Errorf("bag = %v", p.Bag)
	}
	if p.Score != 42 {
		t.Errorf("score = %d, want 42", p.Score)
	}

	l, ok := got.LostObjects["2"]
	if !ok {
		t.Fatalf("lostObjects = %v, want key \"2\"", got.LostObjects)
	}
	if l.Type != 1 || l.Pos[0] != 10.5 || l.Pos[1] != 3.25 {
		t.Errorf("loot = %+v", l)
	}
}

func TestStateEmptySession(t *testing.T) {
	ts := newTestServer(t, &mockGame{}, nil)

	resp := doJSON(t, http.MethodGet, ts.URL+"/api/v1/game/state", "", "",
		map[string]string{"Authorization": "Bearer " + testToken})

	body, _ := io.ReadAll(resp.Body)
	// Empty sessions keep both objects present (not null).
	if string(body) != `{"players":{},"lostObjects":{}}` {
		t.Errorf("body = %s", body)
	}
}

// ============================================================================
// Action
// ============================================================================

func TestActionMoves(t *testing.T) {
	tests := []struct {
		move     string
		wantDir  game.Direction
		wantStop bool
	}{
		{"L", game.West, false},
		{"R", game.East, false},
		{"U", game.North, false},
		{"D", game.South, false},
		{"", game.North, true},
	}

	for _, tt := range tests {
		t.Run("move "+tt.move, func(t *testing.T) {
			var gotDir game.Direction
			var gotStop bool
			mock := &mockGame{
				moveFunc: func(token string, dir game.Direction, stop bool) error {
					gotDir, gotStop = dir, stop
					return nil
				},
			}
			ts := newTestServer(t, mock, nil)

			resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/player/action",
				"application/json", `{"move":"`+tt.move+`"}`,
				map[string]string{"Authorization": "Bearer " + testToken})

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			body, _ := io.ReadAll(resp.Body)
			if string(body) != "{}" {
				t.Errorf("body = %s, want {}", body)
			}
			if gotDir != tt.wantDir || gotStop != tt.wantStop {
				t.Errorf("Move(%v, %v), want (%v, %v)", gotDir, gotStop, tt.wantDir, tt.wantStop)
			}
		})
	}
}

func TestActionValidation(t *testing.T) {
	ts := newTestServer(t, &mockGame{}, nil)
	auth := map[string]string{"Authorization": "Bearer " + testToken}

	tests := []struct {
		name        string
		contentType string
		body        string
		wantMessage string
	}{
		{"wrong content type", "text/plain", `{"move":"L"}`, "Invalid content type"},
		{"malformed json", "application/json", `oops`, "Failed to parse player action JSON"},
		{"missing move", "application/json", `{}`, "Missing move field"},
		{"non-string move", "application/json", `{"move":5}`, "Invalid move value"},
		{"bad direction", "application/json", `{"move":"X"}`, "Invalid move direction"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/player/action", tt.contentType, tt.body, auth)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			e := decodeErrorBody(t, resp)
			if e.Code != "invalidArgument" || e.Message != tt.wantMessage {
				t.Errorf("error = %+v, want {invalidArgument %s}", e, tt.wantMessage)
			}
		})
	}
}

func TestActionAuthRunsBeforeContentType(t *testing.T) {
	ts := newTestServer(t, &mockGame{}, nil)

	// No token and a wrong content type: the auth error wins.
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/player/action", "text/plain", `{"move":"L"}`, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	e := decodeErrorBody(t, resp)
	if e.Code != "invalidToken" {
		t.Errorf("code = %q, want invalidToken", e.Code)
	}
}

// ============================================================================
// Tick
// ============================================================================

func TestTickRejectedInAutoMode(t *testing.T) {
	ts := newTestServer(t, &mockGame{manualTicks: false}, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/tick",
		"application/json", `{"timeDelta":100}`, nil)

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	e := decodeErrorBody(t, resp)
	if e.Code != "badRequest" || e.Message != "Invalid endpoint" {
		t.Errorf("error = %+v", e)
	}
}

func TestTickManual(t *testing.T) {
	var got time.Duration
	mock := &mockGame{
		manualTicks: true,
		tickFunc: func(delta time.Duration) error {
			got = delta
			return nil
		},
	}
	ts := newTestServer(t, mock, nil)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/tick",
		"application/json", `{"timeDelta":1500}`, nil)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "{}" {
		t.Errorf("body = %s, want {}", body)
	}
	if got != 1500*time.Millisecond {
		t.Errorf("delta = %v, want 1.5s", got)
	}
}

func TestTickValidation(t *testing.T) {
	ts := newTestServer(t, &mockGame{manualTicks: true}, nil)

	tests := []struct {
		name        string
		contentType string
		body        string
		wantMessage string
	}{
		{"wrong content type", "text/plain", `{"timeDelta":100}`, "Invalid content type"},
		{"malformed json", "application/json", `{"timeDelta"`, "Failed to parse tick request JSON"},
		{"missing field", "application/json", `{}`, "Missing timeDelta field"},
		{"string delta", "application/json", `{"timeDelta":"100"}`, "Invalid timeDelta value"},
		{"fractional delta", "application/json", `{"timeDelta":0.5}`, "Invalid timeDelta value"},
		{"negative delta", "application/json", `{"timeDelta":-1}`, "Invalid timeDelta value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/game/tick", tt.contentType, tt.body, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			e := decodeErrorBody(t, resp)
			if e.Code != "invalidArgument" || e.Message != tt.wantMessage {
				t.Errorf("error = %+v, want {invalidArgument %s}", e, tt.wantMessage)
			}
		})
	}
}

// ============================================================================
// Records
// ============================================================================

func TestRecordsPage(t *testing.T) {
	var gotStart, gotMax int
	rec := &mockRecords{
		pageFunc: func(ctx context.Context, start, maxItems int) ([]records.Record, error) {
			gotStart, gotMax = start, maxItems
			return []records.Record{
				{Name: "Rex", Score: 100, PlayTime: 12.5},
				{Name: "Pug", Score: 80, PlayTime: 63.5},
			}, nil
		},
	}
	ts := newTestServer(t, &mockGame{}, rec)

	resp, err := http.Get(ts.URL + "/api/v1/game/records?start=10&maxItems=3")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if gotStart != 10 || gotMax != 3 {
		t.Errorf("Page(%d, %d), want (10, 3)", gotStart, gotMax)
	}
	var got []struct {
		Name     string  `json:"name"`
		Score    int     `json:"score"`
		PlayTime float64 `json:"playTime"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Rex" || got[1].PlayTime != 63.5 {
		t.Errorf("records = %+v", got)
	}
}

func TestRecordsDefaults(t *testing.T) {
	var gotStart, gotMax int
	rec := &mockRecords{
		pageFunc: func(ctx context.Context, start, maxItems int) ([]records.Record, error) {
			gotStart, gotMax = start, maxItems
			return []records.Record{}, nil
		},
	}
	ts := newTestServer(t, &mockGame{}, rec)

	resp, err := http.Get(ts.URL + "/api/v1/game/records")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if gotStart != 0 || gotMax != 100 {
		t.Errorf("Page(%d, %d), want defaults (0, 100)", gotStart, gotMax)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "[]" {
		t.Errorf("body = %s, want []", body)
	}
}

func TestRecordsValidation(t *testing.T) {
	rec := &mockRecords{
		pageFunc: func(ctx context.Context, start, maxItems int) ([]records.Record, error) {
			t.Fatal("store must not be queried on invalid parameters")
			return nil, nil
		},
	}
	ts := newTestServer(t, &mockGame{}, rec)

	tests := []struct {
		name        string
		query       string
		wantMessage string
	}{
		{"start not a number", "?start=abc", "Invalid start parameter"},
		{"start negative", "?start=-1", "start must be non-negative"},
		{"maxItems not a number", "?maxItems=abc", "Invalid maxItems parameter"},
		{"maxItems zero", "?maxItems=0", "maxItems must be positive"},
		{"maxItems too large", "?maxItems=101", "maxItems must not exceed 100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/v1/game/records" + tt.query)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			e := decodeErrorBody(t, resp)
			if e.Code != "invalidArgument" || e.Message != tt.wantMessage {
				t.Errorf("error = %+v, want {invalidArgument %s}", e, tt.wantMessage)
			}
		})
	}
}

func TestRecordsWithoutStore(t *testing.T) {
	ts := newTestServer(t, &mockGame{}, nil)

	resp, err := http.Get(ts.URL + "/api/v1/game/records")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	e := decodeErrorBody(t, resp)
	if e.Code != "internalError" || e.Message != "Records storage is not configured" {
		t.Errorf("error = %+v", e)
	}
}

func TestRecordsStoreFailure(t *testing.T) {
	rec := &mockRecords{
		pageFunc: func(ctx context.Context, start, maxItems int) ([]records.Record, error) {
			return nil, context.DeadlineExceeded
		},
	}
	ts := newTestServer(t, &mockGame{}, rec)

	resp, err := http.Get(ts.URL + "/api/v1/game/records")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	e := decodeErrorBody(t, resp)
	if e.Code != "internalError" || e.Message != "Failed to fetch records" {
		t.Errorf("error = %+v", e)
	}
}

// ============================================================================
// Routing
// ============================================================================

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, &mockGame{gameMaps: fixtureMaps()}, nil)

	tests := []struct {
		method    string
		path      string
		wantAllow string
	}{
		{http.MethodPost, "/api/v1/maps", "GET, HEAD"},
		{http.MethodGet, "/api/v1/game/join", "POST"},
		{http.MethodDelete, "/api/v1/game/state", "GET, HEAD"},
		{http.MethodPut, "/api/v1/game/tick", "POST"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := doJSON(t, tt.method, ts.URL+tt.path, "application/json", "{}", nil)
			if resp.StatusCode != http.StatusMethodNotAllowed {
				t.Fatalf("status = %d, want 405", resp.StatusCode)
			}
			if allow := resp.Header.Get("Allow"); allow != tt.wantAllow {
				t.Errorf("Allow = %q, want %q", allow, tt.wantAllow)
			}
			e := decodeErrorBody(t, resp)
			if e.Code != "invalidMethod" || e.Message != "Invalid method" {
				t.Errorf("error = %+v", e)
			}
		})
	}
}

func TestUnknownAPIPath(t *testing.T) {
	ts := newTestServer(t, &mockGame{}, nil)

	for _, path := range []string{"/api/v1/nope", "/api/v2/maps", "/api"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + path)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			e := decodeErrorBody(t, resp)
			if e.Code != "badRequest" || e.Message != "Invalid request" {
				t.Errorf("error = %+v", e)
			}
		})
	}
}

func TestStaticFallbackThroughRouter(t *testing.T) {
	dir := t.TempDir()
	writeStaticFile(t, dir, "index.html", "<html>hound</html>")

	router := NewRouter(RouterConfig{
		Game:           &mockGame{},
		Static:         NewStaticHandler(dir),
		DisableLogging: true,
	})
	ts := httptest.NewServer(router)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "<html>hound</html>" {
		t.Errorf("body = %s", body)
	}

	// Paths that merely start with "api" still fall through to files.
	resp2, err := http.Get(ts.URL + "/api-docs")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Errorf("/api-docs status = %d, want 404 from the file handler", resp2.StatusCode)
	}
}

func TestCORSHeaders(t *testing.T) {
	ts := newTestServer(t, &mockGame{gameMaps: fixtureMaps()}, nil)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/maps", nil)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", origin)
	}
}

// TestNewRouterHasNoSideEffects verifies that NewRouter opens no listeners
// and starts nothing beyond the limiter cleanup goroutine.
func TestNewRouterHasNoSideEffects(t *testing.T) {
	router := NewRouter(RouterConfig{
		Game:           &mockGame{},
		DisableLogging: true,
		RateLimitConfig: &RateLimitConfig{
			RequestsPerSecond: 1000,
			Burst:             1000,
			CleanupInterval:   time.Hour,
		},
	})
	if router == nil {
		t.Fatal("router must not be nil")
	}
}
