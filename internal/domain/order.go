// Package domain defines the core entities shared by the book engine, the
// venue feed, the caches, and the API layer.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Side identifies which half of the book an order rests on.
type Side int

const (
	// Bid is a buy-side resting order.
	Bid Side = iota
	// Ask is a sell-side resting order.
	Ask
)

// String returns the canonical lower-case name of the side.
func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// ParseSide maps the side tags used by venue feeds ("BUY"/"SELL", "bid"/"ask",
// "bids"/"asks") onto a Side.
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "bid", "bids", "buy", "b":
		return Bid, nil
	case "ask", "asks", "sell", "s":
		return Ask, nil
	default:
		return 0, fmt.Errorf("domain: unknown side %q", v)
	}
}

// MarshalJSON encodes the side as its canonical name.
func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts any of the side tags ParseSide understands.
func (s *Side) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseSide(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Order is a resting limit order. IDs are caller-supplied and assumed unique
// within one book instance; quantity validation is the caller's concern.
type Order struct {
	ID              string            `json:"id"`
	Price           float64           `json:"price"`
	Quantity        float64           `json:"size"`
	Side            Side              `json:"side"`
	Venue           string            `json:"venue"`
	Symbol          string            `json:"symbol"`
	Timestamp       time.Time         `json:"timestamp"`
	ParticipantType string            `json:"participant_type,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the order. The book keeps its own copies so
// callers cannot mutate resting state through a retained reference.
func (o Order) Clone() Order {
	c := o
	if o.Metadata != nil {
		c.Metadata = make(map[string]string, len(o.Metadata))
		for k, v := range o.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// PriceLevel aggregates all orders resting at one quantized price.
type PriceLevel struct {
	Price         float64 `json:"price"`
	TotalQuantity float64 `json:"total_quantity"`
	OrderCount    int     `json:"order_count"`
}

// BookSnapshot is an immutable point-in-time view of one book. Bids are
// ordered best (highest) first, asks best (lowest) first. Timestamp is the
// time of the last mutation applied to the underlying store.
type BookSnapshot struct {
	Venue     string       `json:"venue"`
	Symbol    string       `json:"symbol"`
	Bids      []PriceLevel `json:"bids"`
	Asks      []PriceLevel `json:"asks"`
	Timestamp time.Time    `json:"timestamp"`
}

// BestBid returns the top bid level, if any.
func (s BookSnapshot) BestBid() (PriceLevel, bool) {
	if len(s.Bids) == 0 {
		return PriceLevel{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the top ask level, if any.
func (s BookSnapshot) BestAsk() (PriceLevel, bool) {
	if len(s.Asks) == 0 {
		return PriceLevel{}, false
	}
	return s.Asks[0], true
}
