package cart

// Line is one cart entry. A line with Qty <= 0 must not exist: stores delete it
// instead of keeping a zero.
type Line struct {
	Qty      int
	Selected bool
}

// Mapping is the logical cart content, identical for the authenticated (redis)
// and anonymous (client token) representations.
type Mapping map[int64]Line

// MergeInto folds an anonymous mapping into an authenticated one: quantities are
// summed and selection is OR-ed.
func MergeInto(dst, anon Mapping) Mapping {
	if dst == nil {
		dst = Mapping{}
	}
	for skuID, l := range anon {
		cur := dst[skuID]
		dst[skuID] = Line{
			Qty:      cur.Qty + l.Qty,
			Selected: cur.Selected || l.Selected,
		}
	}
	return dst
}
