package redisx

import "time"

const (
	// Cache of the order document served on reads: order:{order_id} -> JSON
	KeyOrder = "order:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Cached admin stats snapshot (whole summary as JSON).
	KeyStatsSummary = "stats:summary"

	// Live per-status counters maintained by the stats projector (hash).
	KeyStatsCounters = "stats:counters"
)

var (
	TTLOrderCache   = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
	TTLStatsSummary = 30 * time.Second
)
