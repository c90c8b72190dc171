// Package reporting derives read-only dashboards, leaderboards and stale
// lead lists from stored leads. Nothing here mutates a lead.
package reporting

import (
	"math"
	"sort"
	"time"

	"leadcrm_backend/internal/leads/domain"
	"leadcrm_backend/internal/leads/ports"
	"leadcrm_backend/internal/leads/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// KeyAll is the total bucket in StatusCounts.
const KeyAll = "all"

// StatusCounts always carries "all" plus one key per canonical status.
type StatusCounts map[string]int

// NewStatusCounts returns the fixed-shape zeroed map.
func NewStatusCounts() StatusCounts {
	counts := StatusCounts{KeyAll: 0}
	for _, s := range domain.Statuses {
		counts[string(s)] = 0
	}
	return counts
}

// Add buckets n leads stored with raw status. The legacy alias folds into
// closed. Unknown statuses only count towards "all".
func (c StatusCounts) Add(raw string, n int) {
	c[KeyAll] += n
	if s, ok := domain.ParseStatus(raw); ok {
		c[string(s)] += n
	}
}

// FoldStatusCounts converts raw GROUP BY output into StatusCounts.
func FoldStatusCounts(raw map[string]int) StatusCounts {
	counts := NewStatusCounts()
	for status, n := range raw {
		counts.Add(status, n)
	}
	return counts
}

// CountCreatedSince buckets leads created at or after since. A zero since
// counts everything.
func CountCreatedSince(leads []repository.Lead, since time.Time) StatusCounts {
	counts := NewStatusCounts()
	for _, lead := range leads {
		if !since.IsZero() && lead.CreatedAt.Before(since) {
			continue
		}
		counts.Add(string(lead.Status), 1)
	}
	return counts
}

// SalespersonStats is one row of a leaderboard.
type SalespersonStats struct {
	UserID          uuid.UUID       `json:"userId"`
	Name            string          `json:"name"`
	TotalLeads      int             `json:"totalLeads"`
	ClosedLeads     int             `json:"closedLeads"`
	Revenue         decimal.Decimal `json:"revenue"`
	ConversionRate  float64         `json:"conversionRate"`
	Rank            int             `json:"rank"`
	IsStarPerformer bool            `json:"isStarPerformer"`
}

// isClosedSince reports whether the lead is won with closedAt in the window.
func isClosedSince(lead repository.Lead, since time.Time) bool {
	status, ok := domain.ParseStatus(string(lead.Status))
	if !ok || !status.IsWon() || lead.ClosedAt == nil {
		return false
	}
	return since.IsZero() || !lead.ClosedAt.Before(since)
}

// Tally computes unranked per-salesperson figures in roster order.
func Tally(roster []ports.UserInfo, leads []repository.Lead, since time.Time) []SalespersonStats {
	index := make(map[uuid.UUID]int, len(roster))
	rows := make([]SalespersonStats, len(roster))
	for i, u := range roster {
		index[u.ID] = i
		rows[i] = SalespersonStats{UserID: u.ID, Name: u.Name, Revenue: decimal.Zero}
	}

	for _, lead := range leads {
		if lead.AssignedTo == nil {
			continue
		}
		i, ok := index[*lead.AssignedTo]
		if !ok {
			continue
		}
		if since.IsZero() || !lead.CreatedAt.Before(since) {
			rows[i].TotalLeads++
		}
		if isClosedSince(lead, since) {
			rows[i].ClosedLeads++
			rows[i].Revenue = rows[i].Revenue.Add(lead.Value)
		}
	}

	for i := range rows {
		rows[i].ConversionRate = Percent(rows[i].ClosedLeads, rows[i].TotalLeads)
	}
	return rows
}

// RankByRevenue sorts by revenue descending, keeping roster order on ties.
// Only rank 1 with positive revenue is a star performer.
func RankByRevenue(rows []SalespersonStats) []SalespersonStats {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Revenue.GreaterThan(rows[j].Revenue)
	})
	return assignRanks(rows)
}

// RankByClosed sorts by closed count then revenue, both descending.
func RankByClosed(rows []SalespersonStats) []SalespersonStats {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].ClosedLeads != rows[j].ClosedLeads {
			return rows[i].ClosedLeads > rows[j].ClosedLeads
		}
		return rows[i].Revenue.GreaterThan(rows[j].Revenue)
	})
	return assignRanks(rows)
}

func assignRanks(rows []SalespersonStats) []SalespersonStats {
	for i := range rows {
		rows[i].Rank = i + 1
		rows[i].IsStarPerformer = i == 0 && rows[i].Revenue.IsPositive()
	}
	return rows
}

// Percent returns part/whole*100 rounded to two places, or 0 when whole is 0.
func Percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 100
}

// SumClosedSince adds the value of leads closed in the window.
func SumClosedSince(leads []repository.Lead, since time.Time) (int, decimal.Decimal) {
	count := 0
	revenue := decimal.Zero
	for _, lead := range leads {
		if isClosedSince(lead, since) {
			count++
			revenue = revenue.Add(lead.Value)
		}
	}
	return count, revenue
}

// CountCreated counts leads created at or after since.
func CountCreated(leads []repository.Lead, since time.Time) int {
	n := 0
	for _, lead := range leads {
		if !lead.CreatedAt.Before(since) {
			n++
		}
	}
	return n
}
