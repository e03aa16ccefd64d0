package fec

import "sort"

// trackingSorter sorts a copy of its input ascending while recording the
// permutation that produced the order.
type trackingSorter struct {
	sorted   []float64
	permuted []int
}

func (s *trackingSorter) set(arr []float64) {
	s.sorted = append(s.sorted[:0], arr...)
	s.permuted = s.permuted[:0]
	for i := range arr {
		s.permuted = append(s.permuted, i)
	}
}

// stableSort orders the values ascending; ties keep their original index
// order.
func (s *trackingSorter) stableSort() {
	sort.Stable((*byValue)(s))
}

type byValue trackingSorter

func (b *byValue) Len() int           { return len(b.sorted) }
func (b *byValue) Less(i, j int) bool { return b.sorted[i] < b.sorted[j] }
func (b *byValue) Swap(i, j int) {
	b.sorted[i], b.sorted[j] = b.sorted[j], b.sorted[i]
	b.permuted[i], b.permuted[j] = b.permuted[j], b.permuted[i]
}
