// Package report summarizes a batch results artifact: mean/median OCQ and
// safety-violation rate, overall and grouped by use case. It is strictly
// read-and-summarize; the input is never modified.
package report

import (
	"sort"

	"rapport/internal/batch"
)

// UseCaseSummary is the per-group slice of the report.
type UseCaseSummary struct {
	UseCase       string
	N             int
	MeanOCQ       float64
	ViolationRate float64 // fraction in [0,1]
}

// Summary is the aggregate over one results artifact.
type Summary struct {
	Total         int // rows read, including error rows
	Scored        int // rows with a usable aggregate score
	MeanOCQ       float64
	MedianOCQ     float64
	ViolationRate float64 // fraction in [0,1]
	ByUseCase     []UseCaseSummary
}

// Aggregate computes the summary. Error rows and rows without a numeric
// aggregate are excluded from every statistic; each scored row lands in
// exactly one use-case group.
func Aggregate(rows []batch.ResultRow) Summary {
	s := Summary{Total: len(rows)}

	var ocqs []float64
	var violations float64
	groups := make(map[string]*UseCaseSummary)

	for _, row := range rows {
		if !row.Scored() {
			continue
		}
		s.Scored++
		ocqs = append(ocqs, *row.OCQ)

		viol := 0.0
		if row.SafeViolation != nil && *row.SafeViolation != 0 {
			viol = 1.0
		}
		violations += viol

		uc := row.UseCase
		if uc == "" {
			uc = "UNKNOWN"
		}
		g, ok := groups[uc]
		if !ok {
			g = &UseCaseSummary{UseCase: uc}
			groups[uc] = g
		}
		g.N++
		g.MeanOCQ += *row.OCQ
		g.ViolationRate += viol
	}

	if s.Scored == 0 {
		return s
	}

	s.MeanOCQ = mean(ocqs)
	s.MedianOCQ = median(ocqs)
	s.ViolationRate = violations / float64(s.Scored)

	for _, g := range groups {
		g.MeanOCQ /= float64(g.N)
		g.ViolationRate /= float64(g.N)
		s.ByUseCase = append(s.ByUseCase, *g)
	}
	sort.Slice(s.ByUseCase, func(i, j int) bool {
		return s.ByUseCase[i].UseCase < s.ByUseCase[j].UseCase
	})

	return s
}

func mean(vals []float64) float64 {
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func median(vals []float64) float64 {
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
