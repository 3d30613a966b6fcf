package game

import (
	"math"
	"time"

	"loothound/internal/geom"
)

// Loot is a collectible lying on a map or carried in a bag. IDs are
// session-scoped and strictly increasing.
type Loot struct {
	ID       int
	Type     int
	Value    int
	Position geom.Point
}

// LootGenerator decides how many loot items to drop on each tick. It keeps
// an accumulator of time since the last drop so that long quiet stretches
// raise the drop probability toward certainty.
type LootGenerator struct {
	basePeriod  time.Duration
	probability float64
	random      func() float64

	sinceLoot time.Duration
}

// NewLootGenerator builds a generator. probability is the chance of a drop
// per basePeriod of accumulated time. random may be nil, in which case every
// roll is the maximum 1.0.
func NewLootGenerator(basePeriod time.Duration, probability float64, random func() float64) *LootGenerator {
	if random == nil {
		random = func() float64 { return 1.0 }
	}
	return &LootGenerator{
		basePeriod:  basePeriod,
		probability: probability,
		random:      random,
	}
}

// Generate advances the accumulator by delta and returns how many loot items
// to spawn given the current loot and looter counts. It never returns more
// than the shortage (looters minus loot), and returns 0 when there is no
// shortage. The accumulator resets only when something was generated.
func (g *LootGenerator) Generate(delta time.Duration, lootCount, looterCount int) int {
	g.sinceLoot += delta

	if looterCount <= lootCount {
		return 0
	}
	shortage := looterCount - lootCount

	ratio := g.sinceLoot.Seconds() / g.basePeriod.Seconds()
	p := (1 - math.Pow(1-g.probability, ratio)) * g.random()
	if p < 0 {
		p = 0
	} else if p > 1 {
		p = 1
	}

	generated := int(math.Round(float64(shortage) * p))
	if generated > 0 {
		g.sinceLoot = 0
	}
	return generated
}
