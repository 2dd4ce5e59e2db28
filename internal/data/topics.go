package data

import "fmt"

// Topic layout mirrors the subscription surface: one topic per
// instrument per stream, plus interval-keyed snapshot topics that
// wildcard subscribers can match with a "data.book.snapshots.*" prefix.

func TopicBookDeltas(venue, instrument string) string {
	return fmt.Sprintf("data.book.deltas.%s.%s", venue, instrument)
}

func TopicBookDepth10(venue, instrument string) string {
	return fmt.Sprintf("data.book.depth10.%s.%s", venue, instrument)
}

func TopicBookSnapshots(venue, instrument string, intervalMs int64) string {
	return fmt.Sprintf("data.book.snapshots.%s.%s.%d", venue, instrument, intervalMs)
}
