package businessflow

import (
	"time"

	"github.com/amirphl/avax-blinks/models"
	"github.com/amirphl/avax-blinks/utils"
)

// Summarize counts all records and those at most 24h older than now.
// Future timestamps count as recent; unparsable ones never do.
func Summarize(records []models.LinkRecord, now time.Time) models.Summary {
	summary := models.Summary{TotalCount: len(records)}
	for _, r := range records {
		ts, err := utils.ParseISOTimestamp(r.Timestamp)
		if err != nil {
			continue
		}
		if now.Sub(ts) <= utils.RecentWindow {
			summary.Last24hCount++
		}
	}
	return summary
}
