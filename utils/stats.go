package utils

import (
	"sort"
	"strings"

	"github.com/ParraLuca/AlertMe/models"
)

type SiteCount struct {
	Site  string
	Count int
}

type SummaryStats struct {
	TargetsRun    int
	TargetsFailed int
	TargetsSeeded int
	TotalObserved int
	TotalNew      int
	AveragePrice  int
	MinimumPrice  int
	MaximumPrice  int
	NewPerSite    []SiteCount
}

// BuildSummaryStats aggregates a batch run: new-listing counts per
// site and price spread over the newly discovered items. Failed
// targets only count toward TargetsFailed.
func BuildSummaryStats(results []models.TargetResult) SummaryStats {
	stats := SummaryStats{TargetsRun: len(results)}
	siteCounts := make(map[string]int)
	var priced []int

	for _, result := range results {
		if result.Err != nil {
			stats.TargetsFailed++
			continue
		}
		if result.Seed {
			stats.TargetsSeeded++
		}
		stats.TotalObserved += result.Observed
		stats.TotalNew += len(result.NewItems)

		site := strings.TrimSpace(result.Site)
		if site == "" {
			site = "unknown"
		}
		siteCounts[site] += len(result.NewItems)
		for _, it := range result.NewItems {
			if it.Price != nil {
				priced = append(priced, *it.Price)
			}
		}
	}

	if len(priced) > 0 {
		minPrice, maxPrice, total := priced[0], priced[0], 0
		for _, p := range priced {
			total += p
			if p < minPrice {
				minPrice = p
			}
			if p > maxPrice {
				maxPrice = p
			}
		}
		stats.AveragePrice = total / len(priced)
		stats.MinimumPrice = minPrice
		stats.MaximumPrice = maxPrice
	}

	perSite := make([]SiteCount, 0, len(siteCounts))
	for site, count := range siteCounts {
		perSite = append(perSite, SiteCount{Site: site, Count: count})
	}
	sort.Slice(perSite, func(i, j int) bool {
		if perSite[i].Count == perSite[j].Count {
			return perSite[i].Site < perSite[j].Site
		}
		return perSite[i].Count > perSite[j].Count
	})
	stats.NewPerSite = perSite

	return stats
}
