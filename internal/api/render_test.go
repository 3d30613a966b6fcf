package api

import (
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"loothound/internal/render"
)

func TestRenderHandlerUnknownMap(t *testing.T) {
	source := &fakeStateSource{maps: fixtureMaps()}
	h := NewRenderHandler(source, render.New(320, 240))

	req := httptest.NewRequest(http.MethodGet, "/debug/render?map=nowhere", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body := rec.Body.String(); body != `{"code":"mapNotFound","message":"Map not found"}` {
		t.Errorf("body = %s", body)
	}
}

func TestRenderHandlerServesPNG(t *testing.T) {
	source := &fakeStateSource{maps: fixtureMaps()}
	h := NewRenderHandler(source, render.New(320, 240))

	req := httptest.NewRequest(http.MethodGet, "/debug/render?map=town", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", cc)
	}

	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("decoding png: %v", err)
	}
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 240 {
		t.Errorf("image size = %dx%d, want 320x240", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestRenderHandlerSessionError(t *testing.T) {
	source := &fakeStateSource{maps: fixtureMaps()}
	source.failState.Store(true)
	h := NewRenderHandler(source, render.New(320, 240))

	req := httptest.NewRequest(http.MethodGet, "/debug/render?map=town", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
