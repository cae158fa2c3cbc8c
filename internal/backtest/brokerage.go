package backtest

import (
	"math/rand/v2"
	"slices"

	"github.com/sabdulrahuman/backtester/pkg/models"
)

// Brokerage evaluates pending orders against each incoming bar and
// produces Fills. It owns no portfolio state — only the pending-order
// set and the randomness source used for slippage.
type Brokerage struct {
	cfg        BrokerageConfig
	pending    map[int64]*Order
	rng        *rand.Rand
	nextFillID int64
}

// NewBrokerage builds a brokerage seeded from the given seed so that two
// runs with the same seed produce byte-identical fills.
func NewBrokerage(cfg BrokerageConfig, seed int64) *Brokerage {
	return &Brokerage{
		cfg:        cfg,
		pending:    make(map[int64]*Order),
		rng:        rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15)),
		nextFillID: 1,
	}
}

// Submit registers an order with the brokerage. Market orders are not
// stored: the caller fills them immediately via ExecuteMarketOrder.
// Limit/Stop/StopLimit orders are stored pending until a matching bar.
func (b *Brokerage) Submit(o *Order) {
	if o.Type != Market {
		b.pending[o.ID] = o
	}
}

// CancelOrder removes a pending order, returning false if it was not
// being tracked.
func (b *Brokerage) CancelOrder(id int64) bool {
	if _, ok := b.pending[id]; !ok {
		return false
	}
	delete(b.pending, id)
	return true
}

// PendingOrders returns the orders currently resting with the brokerage.
func (b *Brokerage) PendingOrders() []*Order {
	out := make([]*Order, 0, len(b.pending))
	for _, o := range b.pending {
		out = append(out, o)
	}
	return out
}

// ProcessBar evaluates every pending order for symbol against bar, in
// ascending order-id order, and returns the fills produced. Filled orders
// are removed from the pending set; the caller is responsible for telling
// the OrderManager about the transition.
func (b *Brokerage) ProcessBar(symbol string, bar models.Bar) []Fill {
	var fills []Fill
	var ids []int64
	for id, o := range b.pending {
		if o.Symbol == symbol {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	for _, id := range ids {
		o := b.pending[id]
		if fillPrice, ok := b.tryFill(o, bar); ok {
			fills = append(fills, b.createFill(o, bar, fillPrice))
			delete(b.pending, id)
		}
	}
	return fills
}

// ExecuteMarketOrder fills a market order immediately at the bar's close.
func (b *Brokerage) ExecuteMarketOrder(o *Order, bar models.Bar) Fill {
	return b.createFill(o, bar, bar.Close)
}

// tryFill returns the price at which o would fill against bar, per
// order-type fill rules:
//
//	Market:     always fills at close (handled by ExecuteMarketOrder, not
//	            reached via tryFill in normal flow)
//	Limit buy:  fills at limit price if bar.Low  <= limit
//	Limit sell: fills at limit price if bar.High >= limit
//	Stop buy:   triggers if bar.High >= trigger, fills at bar.Close
//	Stop sell:  triggers if bar.Low  <= trigger, fills at bar.Close
//	StopLimit:  triggers like Stop, then only fills if the limit price is
//	            also achievable on the same bar using the Limit inequality;
//	            fills at the limit price, not at close.
func (b *Brokerage) tryFill(o *Order, bar models.Bar) (float64, bool) {
	switch o.Type {
	case Market:
		return bar.Close, true
	case Limit:
		if o.Side == models.Buy && bar.Low <= o.Price {
			return o.Price, true
		}
		if o.Side == models.Sell && bar.High >= o.Price {
			return o.Price, true
		}
		return 0, false
	case Stop:
		if o.Side == models.Buy && bar.High >= o.TriggerPrice {
			return bar.Close, true
		}
		if o.Side == models.Sell && bar.Low <= o.TriggerPrice {
			return bar.Close, true
		}
		return 0, false
	case StopLimit:
		triggered := (o.Side == models.Buy && bar.High >= o.TriggerPrice) ||
			(o.Side == models.Sell && bar.Low <= o.TriggerPrice)
		if !triggered {
			return 0, false
		}
		if o.Side == models.Buy && bar.Low <= o.Price {
			return o.Price, true
		}
		if o.Side == models.Sell && bar.High >= o.Price {
			return o.Price, true
		}
		return 0, false
	default:
		return 0, false
	}
}

func (b *Brokerage) createFill(o *Order, bar models.Bar, basePrice float64) Fill {
	slippage := b.calculateSlippage(o, bar, basePrice)
	fillPrice := basePrice
	if o.Side == models.Buy {
		fillPrice += slippage
	} else {
		fillPrice -= slippage
	}
	commission := b.calculateCommission(o, fillPrice)
	id := b.nextFillID
	b.nextFillID++
	return Fill{
		ID:         id,
		OrderID:    o.ID,
		Symbol:     o.Symbol,
		Side:       o.Side,
		Quantity:   o.Quantity,
		Price:      fillPrice,
		Commission: commission,
		Slippage:   slippage,
		Timestamp:  bar.Timestamp,
	}
}

// calculateSlippage implements
// (fixed + base_price*pct + volume_impact) * random_factor[0.5, 1.5].
func (b *Brokerage) calculateSlippage(o *Order, bar models.Bar, basePrice float64) float64 {
	if !b.cfg.RealisticFills {
		return 0
	}
	var volumeImpact float64
	if bar.Volume > 0 {
		volumeImpact = (o.Quantity / bar.Volume) * basePrice * 0.001
	}
	randomFactor := 0.5 + b.rng.Float64()
	return (b.cfg.SlippageFixed + basePrice*b.cfg.SlippagePct + volumeImpact) * randomFactor
}

// calculateCommission charges the taker fee for market and stop orders,
// and the maker fee for limit and stop-limit orders (both have a resting
// limit-price component).
func (b *Brokerage) calculateCommission(o *Order, fillPrice float64) float64 {
	tradeValue := o.Quantity * fillPrice
	switch o.Type {
	case Limit, StopLimit:
		return tradeValue * b.cfg.MakerFee
	default:
		return tradeValue * b.cfg.TakerFee
	}
}

// MarginRequired reports the margin a position of this size would
// require to open.
func (b *Brokerage) MarginRequired(qty, price float64) float64 {
	return qty * price * b.cfg.MarginRequirement
}

// CheckMargin reports whether availableCash is sufficient to open a
// position of qty at price under the configured margin requirement.
func (b *Brokerage) CheckMargin(qty, price, availableCash float64) bool {
	return b.MarginRequired(qty, price) <= availableCash
}
