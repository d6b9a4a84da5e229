package orderbook

import "github.com/shopspring/decimal"

// maxPriceHeap implements heap.Interface over bid prices: the highest
// price is always at index 0. Adapted from the teacher's int64 MaxPriceHeap
// to compare shopspring/decimal values instead of fixed-point integers.
type maxPriceHeap []decimal.Decimal

func (h maxPriceHeap) Len() int           { return len(h) }
func (h maxPriceHeap) Less(i, j int) bool { return h[i].GreaterThan(h[j]) }
func (h maxPriceHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *maxPriceHeap) Push(x any) {
	*h = append(*h, x.(decimal.Decimal))
}

func (h *maxPriceHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// minPriceHeap implements heap.Interface over ask prices: the lowest price
// is always at index 0.
type minPriceHeap []decimal.Decimal

func (h minPriceHeap) Len() int           { return len(h) }
func (h minPriceHeap) Less(i, j int) bool { return h[i].LessThan(h[j]) }
func (h minPriceHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *minPriceHeap) Push(x any) {
	*h = append(*h, x.(decimal.Decimal))
}

func (h *minPriceHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
