package geom

import "sort"

// Gatherer is a moving collector: the segment it swept during one tick plus
// its capture radius.
type Gatherer struct {
	Start  Point
	End    Point
	Radius float64
}

// Item is a stationary collision target.
type Item struct {
	Position Point
	Radius   float64
}

// GatherEvent reports a gatherer passing over an item. Time is the fraction
// of the gatherer's segment at the closest approach, in [0,1].
type GatherEvent struct {
	ItemID     int
	GathererID int
	SqDistance float64
	Time       float64
}

// Provider enumerates the items and gatherers of one collision pass. IDs in
// the resulting events are the indices handed out here.
type Provider interface {
	ItemsCount() int
	Item(i int) Item
	GatherersCount() int
	Gatherer(i int) Gatherer
}

// CollectResult is the projection of a point onto a gatherer's path.
type CollectResult struct {
	SqDistance float64
	Ratio      float64
}

// IsCollected reports whether the closest approach happens within the
// segment and inside the capture radius.
func (r CollectResult) IsCollected(radius float64) bool {
	return r.Ratio >= 0 && r.Ratio <= 1 && r.SqDistance <= radius*radius
}

// TryCollectPoint projects point c onto the segment a-b. The segment must
// have non-zero length.
func TryCollectPoint(a, b, c Point) CollectResult {
	ux := c.X - a.X
	uy := c.Y - a.Y
	vx := b.X - a.X
	vy := b.Y - a.Y
	uDotV := ux*vx + uy*vy
	uLen2 := ux*ux + uy*uy
	vLen2 := vx*vx + vy*vy
	return CollectResult{
		SqDistance: uLen2 - uDotV*uDotV/vLen2,
		Ratio:      uDotV / vLen2,
	}
}

// FindGatherEvents checks every gatherer against every item and returns the
// hits ordered by time along the gatherer segments, ties kept in provider
// order. Gatherers that did not move produce no events. Only the gatherer
// radius participates in the hit test.
func FindGatherEvents(provider Provider) []GatherEvent {
	var events []GatherEvent
	for g := 0; g < provider.GatherersCount(); g++ {
		gatherer := provider.Gatherer(g)
		if gatherer.Start == gatherer.End {
			continue
		}
		for i := 0; i < provider.ItemsCount(); i++ {
			item := provider.Item(i)
			result := TryCollectPoint(gatherer.Start, gatherer.End, item.Position)
			if result.IsCollected(gatherer.Radius) {
				events = append(events, GatherEvent{
					ItemID:     i,
					GathererID: g,
					SqDistance: result.SqDistance,
					Time:       result.Ratio,
				})
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
	return events
}
