package backtest

import (
	"sync"
	"time"

	"github.com/sabdulrahuman/backtester/pkg/models"
)

// OrderManager owns the canonical order set and its lifecycle views: the
// open, filled, and cancelled id lists. A single engine run owns one
// OrderManager exclusively; the mutex exists for defense-in-depth parity
// with the rest of the package, not because orders cross goroutines
// within a run.
type OrderManager struct {
	mu        sync.Mutex
	orders    map[int64]*Order
	open      []int64
	filled    []int64
	cancelled []int64
	nextID    int64
}

// NewOrderManager returns an empty manager with ids starting at 1.
func NewOrderManager() *OrderManager {
	return &OrderManager{
		orders: make(map[int64]*Order),
		nextID: 1,
	}
}

// submit registers a new order in the Submitted state. It does not yet
// count as resting against the market; MarkPending makes that explicit.
func (m *OrderManager) submit(o *Order) *Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = m.nextID
	m.nextID++
	o.Status = Submitted
	m.orders[o.ID] = o
	m.open = append(m.open, o.ID)
	return o
}

// CreateMarketOrder builds and registers a new market order.
func (m *OrderManager) CreateMarketOrder(symbol string, side models.Side, qty float64, at time.Time) *Order {
	return m.submit(&Order{Symbol: symbol, Side: side, Type: Market, Quantity: qty, CreatedAt: at})
}

// CreateLimitOrder builds and registers a new limit order.
func (m *OrderManager) CreateLimitOrder(symbol string, side models.Side, qty, price float64, at time.Time) *Order {
	return m.submit(&Order{Symbol: symbol, Side: side, Type: Limit, Quantity: qty, Price: price, CreatedAt: at})
}

// CreateStopOrder builds and registers a new stop order.
func (m *OrderManager) CreateStopOrder(symbol string, side models.Side, qty, triggerPrice float64, at time.Time) *Order {
	return m.submit(&Order{Symbol: symbol, Side: side, Type: Stop, Quantity: qty, TriggerPrice: triggerPrice, CreatedAt: at})
}

// CreateStopLimitOrder builds and registers a new stop-limit order.
func (m *OrderManager) CreateStopLimitOrder(symbol string, side models.Side, qty, triggerPrice, limitPrice float64, at time.Time) *Order {
	return m.submit(&Order{
		Symbol: symbol, Side: side, Type: StopLimit, Quantity: qty,
		TriggerPrice: triggerPrice, Price: limitPrice, CreatedAt: at,
	})
}

func removeID(ids []int64, target int64) []int64 {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// MarkPending transitions a Submitted order to Pending once it is
// resting against the market. The order stays in the open set; only its
// status changes.
func (m *OrderManager) MarkPending(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok && !o.Status.terminal() {
		o.Status = Pending
	}
}

// MarkFilled moves an order from open to filled.
func (m *OrderManager) MarkFilled(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		if o.Status.terminal() {
			return
		}
		o.Status = Filled
	}
	m.open = removeID(m.open, id)
	m.filled = append(m.filled, id)
}

// MarkCancelled moves an order from open to cancelled.
func (m *OrderManager) MarkCancelled(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		if o.Status.terminal() {
			return
		}
		o.Status = Cancelled
	}
	m.open = removeID(m.open, id)
	m.cancelled = append(m.cancelled, id)
}

// MarkRejected removes an order from the open set without recording it in
// any terminal list, matching the Rust original (no rejected-orders list).
func (m *OrderManager) MarkRejected(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		if o.Status.terminal() {
			return
		}
		o.Status = Rejected
	}
	m.open = removeID(m.open, id)
}

// GetOrder looks up an order by id.
func (m *OrderManager) GetOrder(id int64) (*Order, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	return o, ok
}

// OpenOrders returns the ids of all currently-open orders.
func (m *OrderManager) OpenOrders() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.open))
	copy(out, m.open)
	return out
}

// OpenOrdersForSymbol filters OpenOrders to a single symbol.
func (m *OrderManager) OpenOrdersForSymbol(symbol string) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int64
	for _, id := range m.open {
		if o, ok := m.orders[id]; ok && o.Symbol == symbol {
			out = append(out, id)
		}
	}
	return out
}

// FilledOrders returns the ids of all filled orders.
func (m *OrderManager) FilledOrders() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.filled))
	copy(out, m.filled)
	return out
}

// TotalOrders, OpenCount, FilledCount report simple counters for CLI
// output and test assertions.
func (m *OrderManager) TotalOrders() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *OrderManager) OpenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.open)
}

func (m *OrderManager) FilledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.filled)
}

// CancelAll cancels every open order.
func (m *OrderManager) CancelAll() {
	for _, id := range m.OpenOrders() {
		m.MarkCancelled(id)
	}
}

// CancelSymbol cancels every open order for a single symbol.
func (m *OrderManager) CancelSymbol(symbol string) {
	for _, id := range m.OpenOrdersForSymbol(symbol) {
		m.MarkCancelled(id)
	}
}

// Reset clears all orders and restarts the id counter at 1.
func (m *OrderManager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = make(map[int64]*Order)
	m.open = nil
	m.filled = nil
	m.cancelled = nil
	m.nextID = 1
}
