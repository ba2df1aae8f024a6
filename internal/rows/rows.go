// Package rows defines the pooled row container flowing through the
// conversion pipeline (reader -> normalizer -> sink). Pooling keeps per-row
// allocations off the hot path for large sheets.
package rows

import (
	"sync"

	"xlcsv/internal/cell"
)

// Row is a pooled container holding one sheet row of typed cells.
//
// Contract:
//   - The reader writes C[0:colCount] and Line, then hands the row off.
//   - The consuming stage must call Free() exactly once when done.
//   - Do not retain references to r or r.C beyond the owning stage.
type Row struct {
	// Line is the 1-based source row number, used in soft-error reports.
	Line int
	// C holds the typed cells in source column order.
	C []cell.Cell
}

var rowPool sync.Pool

// Get returns a pooled Row with length colCount, all cells reset to the
// absent value.
func Get(colCount int) *Row {
	if v := rowPool.Get(); v != nil {
		r := v.(*Row)
		if cap(r.C) < colCount {
			r.C = make([]cell.Cell, colCount)
		}
		r.C = r.C[:colCount]
		for i := range r.C {
			r.C[i] = cell.Cell{}
		}
		r.Line = 0
		return r
	}
	return &Row{C: make([]cell.Cell, colCount)}
}

// Free returns the Row to the pool. The caller must not use r after Free.
func (r *Row) Free() {
	rowPool.Put(r)
}
