// Package render draws top-down PNG views of live sessions for the debug
// server: roads, buildings, offices, ground loot and every dog with its
// heading.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"

	"loothound/internal/app"
	"loothound/internal/game"
	"loothound/internal/geom"

	"github.com/fogleman/gg"
)

// Palette. The loot colors cycle by type index.
var (
	grassColor    = color.RGBA{56, 118, 29, 255}
	roadColor     = color.RGBA{120, 120, 120, 255}
	buildingColor = color.RGBA{141, 110, 99, 255}
	buildingEdge  = color.RGBA{78, 52, 46, 255}
	officeColor   = color.RGBA{255, 193, 7, 255}
	dogColor      = color.RGBA{33, 150, 243, 255}
	labelColor    = color.RGBA{20, 25, 35, 255}

	lootPalette = []color.RGBA{
		{255, 235, 59, 255},
		{255, 152, 0, 255},
		{236, 64, 122, 255},
		{171, 71, 188, 255},
		{38, 198, 218, 255},
	}
)

// Renderer draws frames at a fixed pixel size.
type Renderer struct {
	width  int
	height int
}

// New builds a renderer producing width x height frames.
func New(width, height int) *Renderer {
	return &Renderer{width: width, height: height}
}

// transform maps world coordinates onto the canvas. World y grows south,
// screen y grows down, so no axis flip is needed.
type transform struct {
	scale float64
	minX  float64
	minY  float64
	pad   float64
}

func fitTransform(b geom.Rect, width, height int) transform {
	const pad = 24.0
	w := b.MaxX - b.MinX
	h := b.MaxY - b.MinY
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	scale := math.Min((float64(width)-2*pad)/w, (float64(height)-2*pad)/h)
	return transform{scale: scale, minX: b.MinX, minY: b.MinY, pad: pad}
}

func (t transform) x(wx float64) float64 { return t.pad + (wx-t.minX)*t.scale }
func (t transform) y(wy float64) float64 { return t.pad + (wy-t.minY)*t.scale }

// Frame renders one map together with the live state of its session.
func (r *Renderer) Frame(m *game.Map, view app.StateView) image.Image {
	dc := gg.NewContext(r.width, r.height)
	t := fitTransform(m.MovementBounds(), r.width, r.height)

	dc.SetColor(grassColor)
	dc.DrawRectangle(0, 0, float64(r.width), float64(r.height))
	dc.Fill()

	drawRoads(dc, m.Roads, t)
	drawBuildings(dc, m.Buildings, t)
	drawOffices(dc, m.Offices, t)
	drawLoot(dc, view.Loots, t)
	drawDogs(dc, view.Players, t)

	return dc.Image()
}

func drawRoads(dc *gg.Context, roads []game.Road, t transform) {
	dc.SetColor(roadColor)
	for _, road := range roads {
		b := road.Bounds()
		dc.DrawRectangle(t.x(b.MinX), t.y(b.MinY), (b.MaxX-b.MinX)*t.scale, (b.MaxY-b.MinY)*t.scale)
		dc.Fill()
	}
}

func drawBuildings(dc *gg.Context, buildings []game.Building, t transform) {
	for _, b := range buildings {
		x, y := t.x(b.X), t.y(b.Y)
		w, h := b.W*t.scale, b.H*t.scale

		dc.SetColor(buildingColor)
		dc.DrawRectangle(x, y, w, h)
		dc.Fill()

		dc.SetColor(buildingEdge)
		dc.SetLineWidth(2)
		dc.DrawRectangle(x, y, w, h)
		dc.Stroke()
	}
}

func drawOffices(dc *gg.Context, offices []game.Office, t transform) {
	dc.SetColor(officeColor)
	for _, o := range offices {
		// Offices collect from half a unit away; show that radius.
		dc.DrawCircle(t.x(o.Position.X), t.y(o.Position.Y), 0.5*t.scale)
		dc.Fill()
	}
}

func drawLoot(dc *gg.Context, loots []app.LootState, t transform) {
	for _, l := range loots {
		dc.SetColor(lootPalette[l.Type%len(lootPalette)])
		dc.DrawCircle(t.x(l.Pos.X), t.y(l.Pos.Y), 0.2*t.scale)
		dc.Fill()
	}
}

func drawDogs(dc *gg.Context, players []app.PlayerState, t transform) {
	labels := false
	if p := fontPath(); p != "" {
		if err := dc.LoadFontFace(p, 12); err == nil {
			labels = true
		}
	}

	for _, p := range players {
		x, y := t.x(p.Pos.X), t.y(p.Pos.Y)
		radius := 0.6 * t.scale

		dc.SetColor(dogColor)
		dc.DrawCircle(x, y, radius)
		dc.Fill()

		dc.SetColor(color.White)
		dc.SetLineWidth(2)
		dc.DrawCircle(x, y, radius)
		dc.Stroke()

		// Heading tick from the center toward where the dog faces.
		hx, hy := headingVector(p.Dir)
		dc.DrawLine(x, y, x+hx*radius, y+hy*radius)
		dc.Stroke()

		if labels {
			dc.SetColor(labelColor)
			dc.DrawStringAnchored(fmt.Sprintf("%s %d", p.Name, p.Score), x, y-radius-8, 0.5, 0.5)
		}
	}
}

func headingVector(d game.Direction) (float64, float64) {
	switch d {
	case game.North:
		return 0, -1
	case game.South:
		return 0, 1
	case game.West:
		return -1, 0
	default:
		return 1, 0
	}
}

// fontPath returns the first available system font, or "" when labels must
// be skipped.
func fontPath() string {
	for _, p := range []string{
		"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
		"/usr/share/fonts/TTF/DejaVuSans.ttf",
		"/System/Library/Fonts/Helvetica.ttc",
	} {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
