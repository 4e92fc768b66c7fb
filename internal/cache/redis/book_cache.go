package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tradeforge/depthd/internal/domain"
)

// BookCache implements domain.BookCache using Redis sorted sets and hashes.
// It is an ephemeral read-side mirror of the in-process book, not durable
// storage: every SetSnapshot fully replaces the previous state.
//
// Key schema (one book per venue/symbol):
//
//	book:{venue}:{symbol}:bids      - sorted set of bid prices (score = price)
//	book:{venue}:{symbol}:asks      - sorted set of ask prices (score = price)
//	book:{venue}:{symbol}:bid:qty   - hash price -> total resting quantity
//	book:{venue}:{symbol}:ask:qty   - hash price -> total resting quantity
//	book:{venue}:{symbol}:bid:count - hash price -> order count
//	book:{venue}:{symbol}:ask:count - hash price -> order count
//	book:{venue}:{symbol}:bbo       - hash with "bid" and "ask" fields
//	book:{venue}:{symbol}:meta      - hash with "ts" (last mutation, ns)
type BookCache struct {
	rdb *redis.Client
}

// NewBookCache creates a BookCache backed by the given Client.
func NewBookCache(c *Client) *BookCache {
	return &BookCache{rdb: c.Underlying()}
}

func bookKey(venue, symbol, suffix string) string {
	return "book:" + venue + ":" + symbol + ":" + suffix
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// SetSnapshot atomically replaces the mirrored book for the snapshot's
// venue/symbol: it clears the existing keys and repopulates the sorted sets,
// level hashes, BBO, and metadata in one transaction pipeline.
func (bc *BookCache) SetSnapshot(ctx context.Context, snap domain.BookSnapshot) error {
	venue, symbol := snap.Venue, snap.Symbol
	bidsKey := bookKey(venue, symbol, "bids")
	asksKey := bookKey(venue, symbol, "asks")
	bidQtyKey := bookKey(venue, symbol, "bid:qty")
	askQtyKey := bookKey(venue, symbol, "ask:qty")
	bidCountKey := bookKey(venue, symbol, "bid:count")
	askCountKey := bookKey(venue, symbol, "ask:count")
	bboKey := bookKey(venue, symbol, "bbo")
	metaKey := bookKey(venue, symbol, "meta")

	pipe := bc.rdb.TxPipeline()
	pipe.Del(ctx, bidsKey, asksKey, bidQtyKey, askQtyKey, bidCountKey, askCountKey, bboKey, metaKey)

	for _, lvl := range snap.Bids {
		priceStr := formatFloat(lvl.Price)
		pipe.ZAdd(ctx, bidsKey, redis.Z{Score: lvl.Price, Member: priceStr})
		pipe.HSet(ctx, bidQtyKey, priceStr, formatFloat(lvl.TotalQuantity))
		pipe.HSet(ctx, bidCountKey, priceStr, strconv.Itoa(lvl.OrderCount))
	}
	for _, lvl := range snap.Asks {
		priceStr := formatFloat(lvl.Price)
		pipe.ZAdd(ctx, asksKey, redis.Z{Score: lvl.Price, Member: priceStr})
		pipe.HSet(ctx, askQtyKey, priceStr, formatFloat(lvl.TotalQuantity))
		pipe.HSet(ctx, askCountKey, priceStr, strconv.Itoa(lvl.OrderCount))
	}

	if best, ok := snap.BestBid(); ok {
		pipe.HSet(ctx, bboKey, "bid", formatFloat(best.Price))
	}
	if best, ok := snap.BestAsk(); ok {
		pipe.HSet(ctx, bboKey, "ask", formatFloat(best.Price))
	}
	pipe.HSet(ctx, metaKey, "ts", strconv.FormatInt(snap.Timestamp.UnixNano(), 10))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set book snapshot %s/%s: %w", venue, symbol, err)
	}
	return nil
}

// GetSnapshot reconstructs a full BookSnapshot from the mirror. It returns
// domain.ErrBookNotCached if no snapshot has been written for the pair.
func (bc *BookCache) GetSnapshot(ctx context.Context, venue, symbol string) (domain.BookSnapshot, error) {
	pipe := bc.rdb.Pipeline()

	// Bids sorted descending (best first), asks ascending.
	bidsCmd := pipe.ZRevRangeWithScores(ctx, bookKey(venue, symbol, "bids"), 0, -1)
	asksCmd := pipe.ZRangeWithScores(ctx, bookKey(venue, symbol, "asks"), 0, -1)
	bidQtyCmd := pipe.HGetAll(ctx, bookKey(venue, symbol, "bid:qty"))
	askQtyCmd := pipe.HGetAll(ctx, bookKey(venue, symbol, "ask:qty"))
	bidCountCmd := pipe.HGetAll(ctx, bookKey(venue, symbol, "bid:count"))
	askCountCmd := pipe.HGetAll(ctx, bookKey(venue, symbol, "ask:count"))
	metaCmd := pipe.HGetAll(ctx, bookKey(venue, symbol, "meta"))

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return domain.BookSnapshot{}, fmt.Errorf("redis: get book snapshot %s/%s: %w", venue, symbol, err)
	}

	metaVals, _ := metaCmd.Result()
	if len(metaVals) == 0 {
		return domain.BookSnapshot{}, domain.ErrBookNotCached
	}

	snap := domain.BookSnapshot{Venue: venue, Symbol: symbol}
	if tsStr, ok := metaVals["ts"]; ok {
		if tsNano, err := strconv.ParseInt(tsStr, 10, 64); err == nil {
			snap.Timestamp = time.Unix(0, tsNano)
		}
	}

	bidQty, _ := bidQtyCmd.Result()
	bidCount, _ := bidCountCmd.Result()
	bidsZ, _ := bidsCmd.Result()
	snap.Bids = buildLevels(bidsZ, bidQty, bidCount)

	askQty, _ := askQtyCmd.Result()
	askCount, _ := askCountCmd.Result()
	asksZ, _ := asksCmd.Result()
	snap.Asks = buildLevels(asksZ, askQty, askCount)

	return snap, nil
}

func buildLevels(zs []redis.Z, qty, count map[string]string) []domain.PriceLevel {
	levels := make([]domain.PriceLevel, 0, len(zs))
	for _, z := range zs {
		priceStr, ok := z.Member.(string)
		if !ok {
			continue
		}
		lvl := domain.PriceLevel{Price: z.Score}
		if q, exists := qty[priceStr]; exists {
			lvl.TotalQuantity, _ = strconv.ParseFloat(q, 64)
		}
		if c, exists := count[priceStr]; exists {
			lvl.OrderCount, _ = strconv.Atoi(c)
		}
		levels = append(levels, lvl)
	}
	return levels
}

// GetBBO retrieves the mirrored best bid and best ask prices. It returns
// domain.ErrBookNotCached if no BBO data exists for the pair.
func (bc *BookCache) GetBBO(ctx context.Context, venue, symbol string) (bestBid, bestAsk float64, err error) {
	vals, err := bc.rdb.HGetAll(ctx, bookKey(venue, symbol, "bbo")).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: get bbo %s/%s: %w", venue, symbol, err)
	}
	if len(vals) == 0 {
		return 0, 0, domain.ErrBookNotCached
	}

	if bidStr, ok := vals["bid"]; ok {
		bestBid, _ = strconv.ParseFloat(bidStr, 64)
	}
	if askStr, ok := vals["ask"]; ok {
		bestAsk, _ = strconv.ParseFloat(askStr, 64)
	}
	return bestBid, bestAsk, nil
}

// Compile-time interface check.
var _ domain.BookCache = (*BookCache)(nil)
