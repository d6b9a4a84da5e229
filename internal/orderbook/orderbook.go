// Package orderbook implements the dual-indexed price-time order book: a
// hash-keyed directory for O(1) lookup/cancel, per-side price levels kept
// in strict time priority, and an aggregated depth cache kept eagerly in
// sync with every mutation. Matching follows strict price-time priority
// with self-match prevention that breaks (not skips) traversal.
package orderbook

import (
	"container/heap"
	"container/list"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/ddxclob/internal/clob"
	"github.com/uhyunpark/ddxclob/internal/clobcrypto"
	"github.com/uhyunpark/ddxclob/internal/clobtypes"
)

// restingOrder is the value stored in the hash directory and in a price
// level's FIFO list. elem lets Cancel remove it from its list in O(1),
// mirroring the "stable ID into a shared list" pattern spec.md section 9
// recommends as an alternative to two independently-stored copies.
type restingOrder struct {
	order clobtypes.Order
	elem  *list.Element
}

// priceLevel is one FIFO queue of resting orders at a single price,
// ordered earliest-timestamp-first (container/list gives O(1) push/remove
// at both ends, the same structural role the teacher fills with a plain
// slice and the wyfcoding example fills with container/list directly).
type priceLevel struct {
	price  decimal.Decimal
	orders *list.List
}

func newPriceLevel(price decimal.Decimal) *priceLevel {
	return &priceLevel{price: price, orders: list.New()}
}

// OrderBook holds one side-pair of resting bids and asks for the DDX/USD
// market. All public methods take the single exclusive lock for the
// duration of the call, matching the single-writer concurrency model.
type OrderBook struct {
	mu sync.Mutex

	hasher *clobcrypto.OrderHasher

	bidLevels map[string]*priceLevel // keyed by price.String()
	askLevels map[string]*priceLevel
	bidHeap   maxPriceHeap // candidate prices; lazily pruned against bidLevels
	askHeap   minPriceHeap

	// bidHeapSeen/askHeapSeen record which prices have ever been pushed
	// onto the corresponding heap, so a price level that empties out and
	// later refills at the same price reuses its existing (lazily pruned)
	// heap entry instead of accumulating a duplicate one.
	bidHeapSeen map[string]bool
	askHeapSeen map[string]bool

	bidDepth map[string]decimal.Decimal // price key -> aggregated resting amount
	askDepth map[string]decimal.Decimal

	byHash map[clobtypes.Hash]*restingOrder
}

// New builds an empty order book using the given structured hasher.
func New(hasher *clobcrypto.OrderHasher) *OrderBook {
	return &OrderBook{
		hasher:      hasher,
		bidLevels:   make(map[string]*priceLevel),
		askLevels:   make(map[string]*priceLevel),
		bidDepth:    make(map[string]decimal.Decimal),
		askDepth:    make(map[string]decimal.Decimal),
		byHash:      make(map[clobtypes.Hash]*restingOrder),
		bidHeapSeen: make(map[string]bool),
		askHeapSeen: make(map[string]bool),
	}
}

// Hash computes the order's structured-data digest without mutating the book.
func (ob *OrderBook) Hash(o clobtypes.Order) clobtypes.Hash {
	return ob.hasher.Hash(o)
}

// Add matches the order against the opposite side and, if any amount
// remains, rests it on its own side. The returned fills are in traversal
// order. order.Timestamp must already be set by the caller (the engine
// facade owns timestamp assignment); order.Hash is ignored and recomputed
// here to avoid trusting an unverified caller-supplied field.
func (ob *OrderBook) Add(order clobtypes.Order) ([]clobtypes.Fill, error) {
	details, err := ob.AddWithDetails(order)
	if err != nil {
		return nil, err
	}
	fills := make([]clobtypes.Fill, len(details))
	for i, d := range details {
		fills[i] = d.Fill
	}
	return fills, nil
}

// FillDetail pairs a Fill with the maker's trader address, which the book
// knows at match time but which spec.md's public Fill shape (maker_hash,
// taker_hash, fill_amount, price) does not carry. The engine facade needs
// it to settle the maker's balances once the maker may already have been
// evicted from the book (a fully-consumed maker is removed from the hash
// directory before Add returns), so it calls AddWithDetails directly
// instead of the spec-shaped Add.
type FillDetail struct {
	Fill        clobtypes.Fill
	MakerTrader clobtypes.Address
}

// AddWithDetails is the engine-facing counterpart of Add.
func (ob *OrderBook) AddWithDetails(order clobtypes.Order) ([]FillDetail, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	takerHash := ob.hasher.Hash(order)
	if existing, ok := ob.byHash[takerHash]; ok && existing.order.TraderAddress == order.TraderAddress {
		return nil, clob.ErrDuplicateOrder(hashStringer(takerHash), addressStringer(order.TraderAddress))
	}
	order.Hash = takerHash

	var fills []FillDetail
	switch order.Side {
	case clobtypes.Bid:
		fills = ob.match(&order, ob.askLevels, &ob.askHeap, ob.askDepth, ob.askHeapSeen)
		if order.Amount.Sign() > 0 {
			ob.rest(order, ob.bidLevels, &ob.bidHeap, ob.bidDepth, ob.bidHeapSeen)
		}
	case clobtypes.Ask:
		fills = ob.match(&order, ob.bidLevels, &ob.bidHeap, ob.bidDepth, ob.bidHeapSeen)
		if order.Amount.Sign() > 0 {
			ob.rest(order, ob.askLevels, &ob.askHeap, ob.askDepth, ob.askHeapSeen)
		}
	}
	return fills, nil
}

// match consumes resting liquidity on the opposite side into taker, in
// price-time order, stopping on a price that no longer crosses or on the
// first resting order belonging to the same trader (self-match
// prevention: a specified behavior, not a bug — see spec.md section 9).
func (ob *OrderBook) match(
	taker *clobtypes.Order,
	levels map[string]*priceLevel,
	h heap.Interface,
	depth map[string]decimal.Decimal,
	seen map[string]bool,
) []FillDetail {
	var fills []FillDetail

	for taker.Amount.Sign() > 0 {
		price, level, ok := peekBest(levels, h, seen)
		if !ok {
			break
		}
		if crosses := priceCrosses(taker.Side, taker.Price, price); !crosses {
			break
		}

		front := level.orders.Front()
		if front == nil {
			// stale level: fully consumed by a previous iteration but not
			// yet evicted from the map (shouldn't normally happen, kept
			// defensive since the heap entry for it may still be pending).
			delete(levels, price.String())
			continue
		}
		maker := front.Value.(*restingOrder)

		if maker.order.TraderAddress == taker.TraderAddress {
			break
		}

		q := decimal.Min(taker.Amount, maker.order.Amount)
		taker.Amount = taker.Amount.Sub(q)
		maker.order.Amount = maker.order.Amount.Sub(q)

		fills = append(fills, FillDetail{
			Fill: clobtypes.Fill{
				MakerHash:  maker.order.Hash,
				TakerHash:  taker.Hash,
				FillAmount: q,
				Price:      price,
			},
			MakerTrader: maker.order.TraderAddress,
		})

		key := price.String()
		depth[key] = depth[key].Sub(q)

		if maker.order.Amount.Sign() == 0 {
			level.orders.Remove(front)
			delete(ob.byHash, maker.order.Hash)
			if level.orders.Len() == 0 {
				delete(levels, key)
				delete(depth, key)
			}
		}
	}

	return fills
}

// peekBest returns the best live price and its level, lazily discarding
// stale heap entries whose level has since emptied out (and clearing their
// seen mark, so a later refill at that price pushes a fresh entry).
func peekBest(levels map[string]*priceLevel, h heap.Interface, seen map[string]bool) (decimal.Decimal, *priceLevel, bool) {
	for h.Len() > 0 {
		price := topOf(h)
		level, ok := levels[price.String()]
		if !ok {
			heap.Pop(h)
			delete(seen, price.String())
			continue
		}
		return price, level, true
	}
	return decimal.Decimal{}, nil, false
}

func topOf(h heap.Interface) decimal.Decimal {
	switch t := h.(type) {
	case *maxPriceHeap:
		return (*t)[0]
	case *minPriceHeap:
		return (*t)[0]
	default:
		panic("orderbook: unknown heap type")
	}
}

func priceCrosses(takerSide clobtypes.Side, takerPrice, makerPrice decimal.Decimal) bool {
	if takerSide == clobtypes.Bid {
		return makerPrice.LessThanOrEqual(takerPrice)
	}
	return makerPrice.GreaterThanOrEqual(takerPrice)
}

// rest inserts the (possibly partially filled) taker onto its own side.
// seen tracks which prices already have a live-or-stale entry in h, so a
// price level that empties out and refills later does not push a second
// heap entry for the same price.
func (ob *OrderBook) rest(order clobtypes.Order, levels map[string]*priceLevel, h heap.Interface, depth map[string]decimal.Decimal, seen map[string]bool) {
	key := order.Price.String()
	level, ok := levels[key]
	if !ok {
		level = newPriceLevel(order.Price)
		levels[key] = level
		if !seen[key] {
			pushPrice(h, order.Price)
			seen[key] = true
		}
	}
	ro := &restingOrder{order: order}
	ro.elem = level.orders.PushBack(ro)
	ob.byHash[order.Hash] = ro

	if existing, ok := depth[key]; ok {
		depth[key] = existing.Add(order.Amount)
	} else {
		depth[key] = order.Amount
	}
}

func pushPrice(h heap.Interface, price decimal.Decimal) {
	switch t := h.(type) {
	case *maxPriceHeap:
		heap.Push(t, price)
	case *minPriceHeap:
		heap.Push(t, price)
	default:
		panic("orderbook: unknown heap type")
	}
}

// Get returns the resting order for hash, or OrderNotFound.
func (ob *OrderBook) Get(hash clobtypes.Hash) (clobtypes.Order, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ro, ok := ob.byHash[hash]
	if !ok {
		return clobtypes.Order{}, clob.ErrOrderNotFound(hashStringer(hash))
	}
	return ro.order, nil
}

// Cancel removes a resting order and releases its depth contribution.
// Returns the cancelled order so the caller (the ledger, via the engine
// facade) can release the matching reservation.
func (ob *OrderBook) Cancel(hash clobtypes.Hash) (clobtypes.Order, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ro, ok := ob.byHash[hash]
	if !ok {
		return clobtypes.Order{}, clob.ErrOrderNotFound(hashStringer(hash))
	}

	var levels map[string]*priceLevel
	var depth map[string]decimal.Decimal
	if ro.order.Side == clobtypes.Bid {
		levels, depth = ob.bidLevels, ob.bidDepth
	} else {
		levels, depth = ob.askLevels, ob.askDepth
	}

	key := ro.order.Price.String()
	if level, ok := levels[key]; ok {
		level.orders.Remove(ro.elem)
		depth[key] = depth[key].Sub(ro.order.Amount)
		if level.orders.Len() == 0 {
			delete(levels, key)
			delete(depth, key)
		}
	}
	delete(ob.byHash, hash)
	return ro.order, nil
}

// CancelAllForTrader cancels every resting order owned by trader, used by
// the engine facade's delete-account pipeline. Returns the cancelled
// orders so reservations can be released.
func (ob *OrderBook) CancelAllForTrader(trader clobtypes.Address) []clobtypes.Order {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	var toCancel []clobtypes.Hash
	for h, ro := range ob.byHash {
		if ro.order.TraderAddress == trader {
			toCancel = append(toCancel, h)
		}
	}

	var cancelled []clobtypes.Order
	for _, h := range toCancel {
		ro := ob.byHash[h]
		var levels map[string]*priceLevel
		var depth map[string]decimal.Decimal
		if ro.order.Side == clobtypes.Bid {
			levels, depth = ob.bidLevels, ob.bidDepth
		} else {
			levels, depth = ob.askLevels, ob.askDepth
		}
		key := ro.order.Price.String()
		if level, ok := levels[key]; ok {
			level.orders.Remove(ro.elem)
			depth[key] = depth[key].Sub(ro.order.Amount)
			if level.orders.Len() == 0 {
				delete(levels, key)
				delete(depth, key)
			}
		}
		delete(ob.byHash, h)
		cancelled = append(cancelled, ro.order)
	}
	return cancelled
}

// L2Snapshot returns the top MaxL2Levels price levels per side: bids
// descending by price, asks ascending.
func (ob *OrderBook) L2Snapshot() clobtypes.L2Snapshot {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	bids := sortedLevels(ob.bidLevels, ob.bidDepth, true)
	asks := sortedLevels(ob.askLevels, ob.askDepth, false)
	return clobtypes.L2Snapshot{Bids: bids, Asks: asks}
}

func sortedLevels(levels map[string]*priceLevel, depth map[string]decimal.Decimal, descending bool) []clobtypes.L2Level {
	out := make([]clobtypes.L2Level, 0, len(levels))
	for key, level := range levels {
		out = append(out, clobtypes.L2Level{Price: level.price, Amount: depth[key]})
	}
	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].Price.GreaterThan(out[j].Price)
		}
		return out[i].Price.LessThan(out[j].Price)
	})
	if len(out) > clobtypes.MaxL2Levels {
		out = out[:clobtypes.MaxL2Levels]
	}
	return out
}

type hashStringer clobtypes.Hash

func (h hashStringer) String() string { return clobtypes.Hash(h).Hex() }

type addressStringer clobtypes.Address

func (a addressStringer) String() string { return clobtypes.Address(a).Hex() }
