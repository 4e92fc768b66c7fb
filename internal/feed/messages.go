package feed

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tradeforge/depthd/internal/domain"
)

// Event types carried by the venue order stream.
const (
	EventAdd    = "add"
	EventUpdate = "update"
	EventCancel = "cancel"
)

// OrderEvent is a single message on the venue order stream. Add events carry
// the full order; update events carry only the fields that changed; cancel
// events carry just the order ID.
type OrderEvent struct {
	Type        string            `json:"type"`
	OrderID     string            `json:"order_id"`
	Side        string            `json:"side,omitempty"`
	Price       *float64          `json:"price,omitempty"`
	Quantity    *float64          `json:"size,omitempty"`
	Participant string            `json:"participant,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	TimestampMs int64             `json:"ts,omitempty"`
}

// DecodeEvent parses a raw feed message into an OrderEvent.
func DecodeEvent(raw []byte) (OrderEvent, error) {
	var ev OrderEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return OrderEvent{}, fmt.Errorf("feed: decode event: %w", err)
	}
	switch ev.Type {
	case EventAdd, EventUpdate, EventCancel:
	default:
		return OrderEvent{}, fmt.Errorf("feed: unknown event type %q", ev.Type)
	}
	return ev, nil
}

// Order converts an add event into a domain.Order for the given venue and
// symbol. Events without an order ID are assigned a fresh UUID.
func (ev OrderEvent) Order(venue, symbol string) (domain.Order, error) {
	if ev.Type != EventAdd {
		return domain.Order{}, fmt.Errorf("feed: event type %q is not an add", ev.Type)
	}
	if ev.Price == nil || ev.Quantity == nil {
		return domain.Order{}, fmt.Errorf("feed: add event missing price or size")
	}

	side, err := domain.ParseSide(ev.Side)
	if err != nil {
		return domain.Order{}, fmt.Errorf("feed: add event: %w", err)
	}

	id := ev.OrderID
	if id == "" {
		id = uuid.NewString()
	}

	ts := time.Now().UTC()
	if ev.TimestampMs > 0 {
		ts = time.UnixMilli(ev.TimestampMs).UTC()
	}

	return domain.Order{
		ID:              id,
		Price:           *ev.Price,
		Quantity:        *ev.Quantity,
		Side:            side,
		Venue:           venue,
		Symbol:          symbol,
		Timestamp:       ts,
		ParticipantType: ev.Participant,
		Metadata:        ev.Metadata,
	}, nil
}

// subscribeCommand is the JSON command sent to the venue stream on connect.
type subscribeCommand struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Symbol  string `json:"symbol"`
}
