package usage

import (
	"time"

	"github.com/obsidianstack/usagestats/pkg/types"
)

// Generate builds the report for the current cycle from the static metadata
// and the counters as they stood before this cycle's outcome was recorded.
func Generate(md types.Metadata, c types.Counters, now time.Time) types.Report {
	if md.ExtraUsageTags != nil {
		tags := make(map[string]string, len(md.ExtraUsageTags))
		for k, v := range md.ExtraUsageTags {
			tags[k] = v
		}
		md.ExtraUsageTags = tags
	}
	return types.Report{
		Metadata:           md,
		CollectTimestampMs: now.UnixMilli(),
		TotalSuccess:       c.Success,
		TotalFailed:        c.Failure,
		SeqNumber:          c.Seq,
	}
}

// ForWrite wraps r for persistence. A nil sendErr marks the cycle successful.
func ForWrite(r types.Report, sendErr error) types.WriteRecord {
	rec := types.WriteRecord{UsageStats: r, Success: sendErr == nil}
	if sendErr != nil {
		rec.Error = sendErr.Error()
	}
	return rec
}
