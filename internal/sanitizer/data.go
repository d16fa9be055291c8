package sanitizer

// Report counts what a Clean call took out of a fragment.
type Report struct {
	removedElements map[string]int
	strippedAttrs   int
}

func newReport() Report {
	return Report{removedElements: make(map[string]int)}
}

// RemovedElements maps a tag name to how many elements of it were dropped.
func (r Report) RemovedElements() map[string]int {
	return r.removedElements
}

func (r Report) StrippedAttrs() int {
	return r.strippedAttrs
}

func (r Report) Changed() bool {
	return len(r.removedElements) > 0 || r.strippedAttrs > 0
}

func (r *Report) merge(other Report) {
	for tag, n := range other.removedElements {
		r.removedElements[tag] += n
	}
	r.strippedAttrs += other.strippedAttrs
}
