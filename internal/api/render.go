package api

import (
	"image/png"
	"log"
	"net/http"
	"time"

	"loothound/internal/render"
)

// NewRenderHandler serves a single PNG frame of a map's live session. It
// mounts on the debug server next to the spectator feed:
//
//	GET /debug/render?map=town
func NewRenderHandler(source StateSource, renderer *render.Renderer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := source.FindMap(r.URL.Query().Get("map"))
		if m == nil {
			writeError(w, r, http.StatusNotFound, "mapNotFound", "Map not found")
			return
		}
		view, err := source.StateByMap(m.ID)
		if err != nil {
			writeError(w, r, http.StatusNotFound, "mapNotFound", "Map not found")
			return
		}

		start := time.Now()
		img := renderer.Frame(m, view)
		RecordRender(time.Since(start))

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		if err := png.Encode(w, img); err != nil {
			log.Printf("⚠️ Failed to encode render frame: %v", err)
		}
	})
}
