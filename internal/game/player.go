package game

// Player binds a dog to a joinable identity: its bag, score and timers.
// PlayTime and IdleTime are seconds; IdleTime never exceeds PlayTime.
type Player struct {
	ID          int
	Token       string
	Dog         *Dog
	BagCapacity int
	Bag         []Loot
	Score       int
	PlayTime    float64
	IdleTime    float64
}

// NewPlayer wires a dog to an identity with an empty bag.
func NewPlayer(id int, token string, dog *Dog, bagCapacity int) *Player {
	return &Player{
		ID:          id,
		Token:       token,
		Dog:         dog,
		BagCapacity: bagCapacity,
	}
}

// IsBagFull reports whether the bag reached its capacity.
func (p *Player) IsBagFull() bool {
	return len(p.Bag) >= p.BagCapacity
}

// AddToBag appends loot if there is room and reports whether it was taken.
func (p *Player) AddToBag(l Loot) bool {
	if p.IsBagFull() {
		return false
	}
	p.Bag = append(p.Bag, l)
	return true
}

// BagValue returns the summed value of everything in the bag.
func (p *Player) BagValue() int {
	total := 0
	for _, l := range p.Bag {
		total += l.Value
	}
	return total
}

// DeliverBag banks the bag's summed value into the score and empties the
// bag.
func (p *Player) DeliverBag() {
	p.Score += p.BagValue()
	p.Bag = p.Bag[:0]
}
