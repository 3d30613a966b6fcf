package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"loothound/internal/app"
	"loothound/internal/game"
	"loothound/internal/geom"

	"github.com/go-chi/chi/v5"
)

// Handler methods for routerHandlers.
// Endpoints, payloads and error messages follow the client wire contract;
// changing any string here breaks deployed clients.

// Wire shapes. Struct field order controls the JSON key order.

type mapSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type roadJSON struct {
	X0 float64  `json:"x0"`
	Y0 float64  `json:"y0"`
	X1 *float64 `json:"x1,omitempty"`
	Y1 *float64 `json:"y1,omitempty"`
}

type buildingJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

type officeJSON struct {
	ID      string  `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

type mapDetail struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Roads     []roadJSON        `json:"roads"`
	Buildings []buildingJSON    `json:"buildings"`
	Offices   []officeJSON      `json:"offices"`
	LootTypes []json.RawMessage `json:"lootTypes"`
}

type joinResponse struct {
	AuthToken string `json:"authToken"`
	PlayerID  int    `json:"playerId"`
}

type playerName struct {
	Name string `json:"name"`
}

type bagItem struct {
	ID   int `json:"id"`
	Type int `json:"type"`
}

type statePlayer struct {
	Pos   [2]float64 `json:"pos"`
	Speed [2]float64 `json:"speed"`
	Dir   string     `json:"dir"`
	Bag   []bagItem  `json:"bag"`
	Score int        `json:"score"`
}

type stateLoot struct {
	Type int        `json:"type"`
	Pos  [2]float64 `json:"pos"`
}

type stateResponse struct {
	Players     map[string]statePlayer `json:"players"`
	LostObjects map[string]stateLoot   `json:"lostObjects"`
}

type recordJSON struct {
	Name     string  `json:"name"`
	Score    int     `json:"score"`
	PlayTime float64 `json:"playTime"`
}

func (h *routerHandlers) handleMaps(w http.ResponseWriter, r *http.Request) {
	maps := h.game.Maps()
	out := make([]mapSummary, 0, len(maps))
	for _, m := range maps {
		out = append(out, mapSummary{ID: m.ID, Name: m.Name})
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *routerHandlers) handleMapByID(w http.ResponseWriter, r *http.Request) {
	m := h.game.FindMap(chi.URLParam(r, "id"))
	if m == nil {
		writeError(w, r, http.StatusNotFound, "mapNotFound", "Map not found")
		return
	}
	writeJSON(w, r, http.StatusOK, mapToJSON(m))
}

// mapToJSON rebuilds the config-file shape of a map. Loot types pass through
// as the raw JSON they were loaded from.
func mapToJSON(m *game.Map) mapDetail {
	d := mapDetail{
		ID:        m.ID,
		Name:      m.Name,
		Roads:     make([]roadJSON, 0, len(m.Roads)),
		Buildings: make([]buildingJSON, 0, len(m.Buildings)),
		Offices:   make([]officeJSON, 0, len(m.Offices)),
		LootTypes: make([]json.RawMessage, 0, len(m.LootTypes)),
	}
	for _, road := range m.Roads {
		rj := roadJSON{X0: road.Start.X, Y0: road.Start.Y}
		if road.IsHorizontal() {
			x1 := road.End.X
			rj.X1 = &x1
		} else {
			y1 := road.End.Y
			rj.Y1 = &y1
		}
		d.Roads = append(d.Roads, rj)
	}
	for _, b := range m.Buildings {
		d.Buildings = append(d.Buildings, buildingJSON{X: b.X, Y: b.Y, W: b.W, H: b.H})
	}
	for _, o := range m.Offices {
		d.Offices = append(d.Offices, officeJSON{
			ID:      o.ID,
			X:       o.Position.X,
			Y:       o.Position.Y,
			OffsetX: o.Offset.DX,
			OffsetY: o.Offset.DY,
		})
	}
	for _, lt := range m.LootTypes {
		d.LootTypes = append(d.LootTypes, lt.Raw)
	}
	return d
}

func (h *routerHandlers) handleJoin(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "application/json" {
		writeError(w, r, http.StatusBadRequest, "invalidArgument", "Invalid content type")
		return
	}

	var req struct {
		UserName *string `json:"userName"`
		MapID    *string `json:"mapId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalidArgument", "Join game request parse error")
		return
	}
	if req.UserName == nil || req.MapID == nil {
		writeError(w, r, http.StatusBadRequest, "invalidArgument", "Missing required fields")
		return
	}
	if *req.UserName == "" {
		writeError(w, r, http.StatusBadRequest, "invalidArgument", "Invalid name")
		return
	}

	res, err := h.game.Join(*req.UserName, *req.MapID)
	if err != nil {
		if errors.Is(err, game.ErrMapNotFound) {
			writeError(w, r, http.StatusNotFound, "mapNotFound", "Map not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internalError", "Failed to join game")
		return
	}

	writeJSON(w, r, http.StatusOK, joinResponse{AuthToken: res.Token, PlayerID: res.PlayerID})
}

func (h *routerHandlers) handlePlayers(w http.ResponseWriter, r *http.Request) {
	token, ok := h.authorize(w, r)
	if !ok {
		return
	}

	players, err := h.game.Players(token)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "unknownToken", "Player token has not been found")
		return
	}

	out := make(map[string]playerName, len(players))
	for _, p := range players {
		out[strconv.Itoa(p.ID)] = playerName{Name: p.Name}
	}
	writeJSON(w, r, http.StatusOK, out)
}

func (h *routerHandlers) handleState(w http.ResponseWriter, r *http.Request) {
	token, ok := h.authorize(w, r)
	if !ok {
		return
	}

	view, err := h.game.State(token)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "unknownToken", "Player token has not been found")
		return
	}

	writeJSON(w, r, http.StatusOK, stateToJSON(view))
}

// stateToJSON converts a state view into its wire shape. The spectator feed
// pushes the same shape.
func stateToJSON(view app.StateView) stateResponse {
	out := stateResponse{
		Players:     make(map[string]statePlayer, len(view.Players)),
		LostObjects: make(map[string]stateLoot, len(view.Loots)),
	}
	for _, p := range view.Players {
		bag := make([]bagItem, 0, len(p.Bag))
		for _, l := range p.Bag {
			bag = append(bag, bagItem{ID: l.ID, Type: l.Type})
		}
		out.Players[strconv.Itoa(p.ID)] = statePlayer{
			Pos:   [2]float64{geom.Round6(p.Pos.X), geom.Round6(p.Pos.Y)},
			Speed: [2]float64{geom.Round6(p.Speed.VX), geom.Round6(p.Speed.VY)},
			Dir:   moveLetter(p.Dir),
			Bag:   bag,
			Score: p.Score,
		}
	}
	for _, l := range view.Loots {
		out.LostObjects[strconv.Itoa(l.ID)] = stateLoot{
			Type: l.Type,
			Pos:  [2]float64{geom.Round6(l.Pos.X), geom.Round6(l.Pos.Y)},
		}
	}
	return out
}

// moveLetter maps a heading to the one-letter form the state endpoint uses.
func moveLetter(d game.Direction) string {
	switch d {
	case game.West:
		return "L"
	case game.East:
		return "R"
	case game.South:
		return "D"
	default:
		return "U"
	}
}

// parseMove maps a move command to a heading. The empty command means stop.
func parseMove(move string) (dir game.Direction, stop, ok bool) {
	switch move {
	case "L":
		return game.West, false, true
	case "R":
		return game.East, false, true
	case "U":
		return game.North, false, true
	case "D":
		return game.South, false, true
	case "":
		return game.North, true, true
	}
	return game.North, false, false
}

func (h *routerHandlers) handleAction(w http.ResponseWriter, r *http.Request) {
	token, ok := h.authorize(w, r)
	if !ok {
		return
	}
	if r.Header.Get("Content-Type") != "application/json" {
		writeError(w, r, http.StatusBadRequest, "invalidArgument", "Invalid content type")
		return
	}

	var req struct {
		Move *json.RawMessage `json:"move"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalidArgument", "Failed to parse player action JSON")
		return
	}
	if req.Move == nil {
		writeError(w, r, http.StatusBadRequest, "invalidArgument", "Missing move field")
		return
	}
	var move string
	if err := json.Unmarshal(*req.Move, &move); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalidArgument", "Invalid move value")
		return
	}
	dir, stop, valid := parseMove(move)
	if !valid {
		writeError(w, r, http.StatusBadRequest, "invalidArgument", "Invalid move direction")
		return
	}

	if err := h.game.Move(token, dir, stop); err != nil {
		writeError(w, r, http.StatusUnauthorized, "unknownToken", "Player token has not been found")
		return
	}
	writeJSON(w, r, http.StatusOK, struct{}{})
}

func (h *routerHandlers) handleTick(w http.ResponseWriter, r *http.Request) {
	if !h.game.ManualTickEnabled() {
		writeError(w, r, http.StatusBadRequest, "badRequest", "Invalid endpoint")
		return
	}
	if r.Header.Get("Content-Type") != "application/json" {
		writeError(w, r, http.StatusBadRequest, "invalidArgument", "Invalid content type")
		return
	}

	var req struct {
		TimeDelta *json.RawMessage `json:"timeDelta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalidArgument", "Failed to parse tick request JSON")
		return
	}
	if req.TimeDelta == nil {
		writeError(w, r, http.StatusBadRequest, "invalidArgument", "Missing timeDelta field")
		return
	}
	var ms int64
	if err := json.Unmarshal(*req.TimeDelta, &ms); err != nil || ms < 0 {
		writeError(w, r, http.StatusBadRequest, "invalidArgument", "Invalid timeDelta value")
		return
	}

	if err := h.game.ManualTick(time.Duration(ms) * time.Millisecond); err != nil {
		writeError(w, r, http.StatusBadRequest, "badRequest", "Invalid endpoint")
		return
	}
	writeJSON(w, r, http.StatusOK, struct{}{})
}

func (h *routerHandlers) handleRecords(w http.ResponseWriter, r *http.Request) {
	if h.records == nil {
		writeError(w, r, http.StatusInternalServerError, "internalError", "Records storage is not configured")
		return
	}

	start, maxItems := 0, 100
	query := r.URL.Query()
	if raw := query.Get("start"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalidArgument", "Invalid start parameter")
			return
		}
		if v < 0 {
			writeError(w, r, http.StatusBadRequest, "invalidArgument", "start must be non-negative")
			return
		}
		start = v
	}
	if raw := query.Get("maxItems"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "invalidArgument", "Invalid maxItems parameter")
			return
		}
		if v <= 0 {
			writeError(w, r, http.StatusBadRequest, "invalidArgument", "maxItems must be positive")
			return
		}
		if v > 100 {
			writeError(w, r, http.StatusBadRequest, "invalidArgument", "maxItems must not exceed 100")
			return
		}
		maxItems = v
	}

	recs, err := h.records.Page(r.Context(), start, maxItems)
	if err != nil {
		log.Printf("⚠️ Records query failed: %v", err)
		writeError(w, r, http.StatusInternalServerError, "internalError", "Failed to fetch records")
		return
	}

	out := make([]recordJSON, 0, len(recs))
	for _, rec := range recs {
		out = append(out, recordJSON{Name: rec.Name, Score: rec.Score, PlayTime: rec.PlayTime})
	}
	writeJSON(w, r, http.StatusOK, out)
}

// Helper functions (package-level for reuse)

// writeJSON writes an API response. Responses are never cached, and HEAD
// requests get the headers and Content-Length of the GET body without the
// body itself.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		log.Printf("⚠️ Response encoding failed: %v", err)
		http.Error(w, "encoding error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		w.Write(body)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, r, status, map[string]string{"code": code, "message": message})
}
