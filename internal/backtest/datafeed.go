package backtest

import (
	"sort"

	"github.com/sabdulrahuman/backtester/pkg/models"
)

// DataFeed holds one sorted bar series per symbol and replays them in
// timestamp order, symbol-tie-broken alphabetically, via AlignedStream.
type DataFeed struct {
	bars    map[string][]models.Bar
	indices map[string]int
	symbols []string

	aligned    []models.MarketEvent
	cursor     int
	totalCount int
}

// NewDataFeed builds a feed from a per-symbol bar map. Each symbol's bars
// are sorted by timestamp; bars failing Validate are rejected with a
// DataError.
func NewDataFeed(bars map[string][]models.Bar) (*DataFeed, error) {
	f := &DataFeed{
		bars:    make(map[string][]models.Bar, len(bars)),
		indices: make(map[string]int, len(bars)),
	}
	for symbol, series := range bars {
		for _, b := range series {
			if err := b.Validate(); err != nil {
				return nil, &DataError{Reason: err.Error()}
			}
		}
		cp := make([]models.Bar, len(series))
		copy(cp, series)
		sort.SliceStable(cp, func(i, j int) bool { return cp[i].Timestamp.Before(cp[j].Timestamp) })
		f.bars[symbol] = cp
		f.indices[symbol] = 0
		f.symbols = append(f.symbols, symbol)
	}
	sort.Strings(f.symbols)
	f.buildAligned()
	return f, nil
}

func (f *DataFeed) buildAligned() {
	stampSet := make(map[int64]struct{})
	for _, series := range f.bars {
		for _, b := range series {
			stampSet[b.Timestamp.UnixNano()] = struct{}{}
		}
	}
	stamps := make([]int64, 0, len(stampSet))
	for s := range stampSet {
		stamps = append(stamps, s)
	}
	sort.Slice(stamps, func(i, j int) bool { return stamps[i] < stamps[j] })

	// Duplicate timestamps for the same symbol are retained in input
	// order (stable sort above); only the first bar at a given
	// (timestamp, symbol) pair is used to build the aligned stream.
	byStamp := make(map[int64]map[string]models.Bar)
	for _, sym := range f.symbols {
		for _, b := range f.bars[sym] {
			ts := b.Timestamp.UnixNano()
			if byStamp[ts] == nil {
				byStamp[ts] = make(map[string]models.Bar)
			}
			if _, seen := byStamp[ts][sym]; !seen {
				byStamp[ts][sym] = b
			}
		}
	}

	var events []models.MarketEvent
	for _, ts := range stamps {
		bysym := byStamp[ts]
		for _, sym := range f.symbols {
			if b, ok := bysym[sym]; ok {
				events = append(events, models.MarketEvent{Symbol: sym, Bar: b})
			}
		}
	}
	f.aligned = events
	f.totalCount = len(events)
}

// AlignedStream returns every symbol-stamped bar across all loaded
// symbols, ordered by timestamp and then by symbol name.
func (f *DataFeed) AlignedStream() []models.MarketEvent {
	return f.aligned
}

// Next returns the next bar in the aligned stream and advances the
// cursor, or ok=false once the stream is exhausted.
func (f *DataFeed) Next() (models.MarketEvent, bool) {
	if f.cursor >= len(f.aligned) {
		return models.MarketEvent{}, false
	}
	e := f.aligned[f.cursor]
	f.cursor++
	return e, true
}

// Progress reports how far the aligned stream has been consumed, 0..100.
func (f *DataFeed) Progress() float64 {
	if f.totalCount == 0 {
		return 100
	}
	return float64(f.cursor) / float64(f.totalCount) * 100
}

// Reset rewinds the aligned-stream cursor to the start.
func (f *DataFeed) Reset() {
	f.cursor = 0
}

// Symbols lists the symbols loaded into the feed, alphabetically.
func (f *DataFeed) Symbols() []string {
	out := make([]string, len(f.symbols))
	copy(out, f.symbols)
	return out
}

// Len reports how many bars are loaded for a symbol.
func (f *DataFeed) Len(symbol string) int {
	return len(f.bars[symbol])
}

// IsEmpty reports whether the feed has no bars loaded at all.
func (f *DataFeed) IsEmpty() bool {
	return len(f.aligned) == 0
}

// GetBar returns the bar for a symbol at a given index in its own series.
func (f *DataFeed) GetBar(symbol string, index int) (models.Bar, bool) {
	series := f.bars[symbol]
	if index < 0 || index >= len(series) {
		return models.Bar{}, false
	}
	return series[index], true
}
