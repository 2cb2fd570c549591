package offload

import (
	"fmt"
	"sort"
)

// Edit replaces Source[Start:End] with Text. Start == End is an insertion.
type Edit struct {
	Start int
	End   int
	Text  string
}

type OverlapError struct {
	First, Second Edit
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("edits [%d,%d) and [%d,%d) overlap", e.First.Start, e.First.End, e.Second.Start, e.Second.End)
}

// ApplyEdits applies edits to src in descending start order so earlier
// offsets stay valid. src is not modified.
func ApplyEdits(src []byte, edits []Edit) ([]byte, error) {
	sorted := make([]Edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start > sorted[j].Start
	})

	for i, e := range sorted {
		if e.Start < 0 || e.End < e.Start || e.End > len(src) {
			return nil, fmt.Errorf("edit [%d,%d) outside source of %d bytes", e.Start, e.End, len(src))
		}
		if i > 0 && e.End > sorted[i-1].Start {
			return nil, &OverlapError{First: e, Second: sorted[i-1]}
		}
	}

	out := append([]byte(nil), src...)
	for _, e := range sorted {
		tail := append([]byte(e.Text), out[e.End:]...)
		out = append(out[:e.Start], tail...)
	}
	return out, nil
}
