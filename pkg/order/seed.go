package order

import "fmt"

// seed lists item numbers per order id. Gaps in the numbering are intentional
// and match the fixture the pickers were trained on.
var seed = []struct {
	id    int
	items []int
}{
	{1, []int{1, 2, 3}},
	{2, []int{4, 5}},
	{3, []int{7, 8, 9}},
	{4, []int{10, 11, 12, 13, 14, 15}},
	{5, []int{16, 17, 18, 19, 20}},
	{6, []int{21, 22, 23, 24, 25, 26, 27, 28, 29, 30}},
	{7, []int{31}},
	{8, []int{41, 42, 43, 44}},
	{9, []int{51}},
	{10, []int{61, 62, 63, 64, 65}},
}

// Seed returns a fresh copy of the initial order list with every item pending.
func Seed() []Order {
	out := make([]Order, 0, len(seed))
	for _, s := range seed {
		o := Order{ID: s.id, Items: make([]Item, 0, len(s.items))}
		for _, n := range s.items {
			o.Items = append(o.Items, Item{Name: fmt.Sprintf("Item %d", n), Status: StatusPending})
		}
		out = append(out, o)
	}
	return out
}
