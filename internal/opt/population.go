package opt

import (
	"github.com/google/btree"
)

// Candidate is a scored point tracked by a Population.
//
// Slot identifies the candidate's point buffer in the population's backing
// storage; it never takes part in ordering.
type Candidate struct {
	Point []float64
	Value float64
	Slot  int

	seq uint64
}

// Population is a fixed-size set of candidates ordered by value, with
// O(log n) access to the best and worst members.
//
// Equal values are ordered by insertion sequence so the tree never treats two
// distinct candidates as the same item.
type Population struct {
	tree  *btree.BTreeG[*Candidate]
	slots []*Candidate
	next  uint64
}

func candidateLess(a, b *Candidate) bool {
	if a.Value != b.Value {
		return a.Value < b.Value
	}
	return a.seq < b.seq
}

// NewPopulation allocates npts slots of dimension n. Slots are empty until
// filled with Set.
func NewPopulation(npts, n int) *Population {
	p := &Population{
		tree:  btree.NewG(8, candidateLess),
		slots: make([]*Candidate, npts),
	}
	buf := make([]float64, npts*n)
	for i := range p.slots {
		p.slots[i] = &Candidate{Point: buf[i*n : (i+1)*n : (i+1)*n], Slot: i}
	}
	return p
}

// Set copies x into slot i, records its value and inserts it into the order.
// It is used only while building the initial population.
func (p *Population) Set(i int, x []float64, fx float64) {
	c := p.slots[i]
	p.tree.Delete(c)
	copy(c.Point, x)
	c.Value = fx
	p.Insert(c)
}

// Insert adds c to the ordering, assigning it a fresh sequence number
func (p *Population) Insert(c *Candidate) {
	p.next++
	c.seq = p.next
	p.tree.ReplaceOrInsert(c)
}

// Replace atomically removes old and re-inserts it carrying point x and
// value fx. The slot buffer of old is reused, so x may be a scratch buffer.
// It reports false if old was not a member.
func (p *Population) Replace(old *Candidate, x []float64, fx float64) bool {
	if _, ok := p.tree.Delete(old); !ok {
		return false
	}
	copy(old.Point, x)
	old.Value = fx
	p.Insert(old)
	return true
}

// Min returns the best (lowest value) candidate
func (p *Population) Min() *Candidate {
	c, _ := p.tree.Min()
	return c
}

// Max returns the worst (highest value) candidate
func (p *Population) Max() *Candidate {
	c, _ := p.tree.Max()
	return c
}

// DeleteMin removes and returns the best candidate
func (p *Population) DeleteMin() *Candidate {
	c, _ := p.tree.DeleteMin()
	return c
}

// DeleteMax removes and returns the worst candidate
func (p *Population) DeleteMax() *Candidate {
	c, _ := p.tree.DeleteMax()
	return c
}

// Slot returns the candidate stored in slot i
func (p *Population) Slot(i int) *Candidate {
	return p.slots[i]
}

// Len returns the number of ordered candidates
func (p *Population) Len() int {
	return p.tree.Len()
}

// Cap returns the number of slots
func (p *Population) Cap() int {
	return len(p.slots)
}

// Ascend calls fn on candidates from best to worst until fn returns false
func (p *Population) Ascend(fn func(c *Candidate) bool) {
	p.tree.Ascend(btree.ItemIteratorG[*Candidate](fn))
}
