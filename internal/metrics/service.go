package metrics

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/AngelCh415/fakestat/internal/models"
)

// Source is anything that can hand out a snapshot of the stored records.
type Source interface {
	List() []models.TrafficStat
}

type Service struct{ src Source }

func NewService(src Source) *Service { return &Service{src: src} }
func norm(s string) string           { return strings.ToLower(strings.TrimSpace(s)) }

// Query filters, sorts and paginates the current records.
// Supported params: name (substring), sort (id|name|leads|ratio, "-" prefix
// for descending), limit, offset.
func (s *Service) Query(v url.Values) []models.TrafficStat {
	name := norm(v.Get("name"))
	limit := atoiDef(v.Get("limit"), 0)
	offset := atoiDef(v.Get("offset"), 0)

	rows := s.src.List()
	if name != "" {
		filtered := rows[:0]
		for _, r := range rows {
			if strings.Contains(norm(r.Name), name) {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	sortRows(rows, v.Get("sort"))

	limit, offset = clampLimitOffset(limit, offset, len(rows))
	return paginate(rows, limit, offset)
}

func sortRows(rows []models.TrafficStat, key string) {
	desc := strings.HasPrefix(key, "-")
	key = strings.TrimPrefix(key, "-")

	var less func(a, b models.TrafficStat) bool
	switch key {
	case "id":
		less = func(a, b models.TrafficStat) bool { return a.ID < b.ID }
	case "name":
		less = func(a, b models.TrafficStat) bool { return a.Name < b.Name }
	case "leads":
		less = func(a, b models.TrafficStat) bool { return a.TotalLeads < b.TotalLeads }
	case "ratio":
		less = func(a, b models.TrafficStat) bool { return a.ConversionRatio < b.ConversionRatio }
	default:
		// insertion order
		return
	}
	// estable: empates conservan el orden de inserción
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

// Summary aggregates the whole collection.
func (s *Service) Summary() models.Summary {
	var sum models.Summary
	for _, r := range s.src.List() {
		sum.Records++
		sum.SuccessfulLeads += r.SuccessfulLeads
		sum.TotalLeads += r.TotalLeads
		sum.TotalFTDs += r.TotalFTDs
		sum.LateTotalFTDs += r.LateTotalFTDs
		sum.Revenue += r.Revenue
	}
	sum.Revenue = round2(sum.Revenue)
	sum.ConversionRatio = ConversionRatio(sum.TotalFTDs, sum.TotalLeads)
	return sum
}

func paginate[T any](rows []T, limit, offset int) []T {
	if offset >= len(rows) {
		return []T{}
	}
	end := offset + limit
	if end > len(rows) {
		end = len(rows)
	}
	return rows[offset:end]
}

func atoiDef(s string, d int) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return v
}
func clampLimitOffset(limit, offset, n int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = n
	}
	if limit > 1000 {
		limit = 1000
	} // tope sano
	if offset > n {
		offset = n
	}
	return limit, offset
}
