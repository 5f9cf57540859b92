package evidence

import "sort"

// GroupByType buckets atoms by evidence type, preserving batch order within
// each bucket.
func GroupByType(atoms []Atom) map[string][]Atom {
	out := make(map[string][]Atom)
	for _, a := range atoms {
		out[a.Type] = append(out[a.Type], a)
	}
	return out
}

// RankByConfidence orders atoms by descending provenance confidence so the
// most trusted extraction supplies each field first. Missing confidence is
// zero; ties keep extraction order, but confidence, not order, decides.
func RankByConfidence(atoms []Atom) []Atom {
	out := append([]Atom{}, atoms...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Provenance.Confidence > out[j].Provenance.Confidence
	})
	return out
}
