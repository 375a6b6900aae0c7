package stats

import (
	"math"

	"github.com/quotefunnel/quotefunnel/internal/store"
)

// Result is the statistical analysis across all variants.
type Result struct {
	Variants        []VariantResult
	Confident       bool    // >= 95% confidence
	ConfidenceLevel float64 // 0-1
	Leading         int     // index into Variants
}

// VariantResult contains statistics for a single variant.
type VariantResult struct {
	VariantID   int64
	Name        string
	Headline    string
	Views       int
	Conversions int
	Rate        float64
	CILower     float64
	CIUpper     float64
	IsActive    bool
	IsDefault   bool
}

// SignificanceTest performs a two-proportion z-test and returns the
// confidence level (0-1) that variant A beats variant B.
func SignificanceTest(aConv, aViews, bConv, bViews int) float64 {
	if aViews == 0 || bViews == 0 {
		return 0.5 // need data from both sides
	}

	pA := float64(aConv) / float64(aViews)
	pB := float64(bConv) / float64(bViews)

	// Pooled proportion under the null hypothesis pA == pB
	pooled := float64(aConv+bConv) / float64(aViews+bViews)

	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(aViews) + 1/float64(bViews)))
	if se == 0 {
		switch {
		case pA > pB:
			return 1.0
		case pA < pB:
			return 0.0
		}
		return 0.5
	}

	z := (pA - pB) / se
	return normalCDF(z)
}

// normalCDF approximates the standard normal cumulative distribution
// function (Abramowitz & Stegun 7.1.26).
func normalCDF(x float64) float64 {
	a1 := 0.254829592
	a2 := -0.284496736
	a3 := 1.421413741
	a4 := -1.453152027
	a5 := 1.061405429
	p := 0.3275911

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt(2)

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}

// Analyze joins variants with their view/conversion stats and computes
// rates, Wilson intervals and the significance of the leading variant
// against the control. The control is the oldest variant (lowest id),
// matching the order variants are created in.
func Analyze(variants []*store.Variant, variantStats []store.VariantStats) *Result {
	statsByID := make(map[int64]store.VariantStats, len(variantStats))
	for _, vs := range variantStats {
		statsByID[vs.VariantID] = vs
	}

	results := make([]VariantResult, len(variants))
	maxRate := 0.0
	leading := 0

	for i, v := range variants {
		vs := statsByID[v.ID] // zero-valued when the variant has no events

		rate := 0.0
		if vs.Views > 0 {
			rate = float64(vs.Conversions) / float64(vs.Views)
		}
		ciLower, ciUpper := WilsonInterval(vs.Conversions, vs.Views, 0.95)

		results[i] = VariantResult{
			VariantID:   v.ID,
			Name:        v.Name,
			Headline:    v.Headline,
			Views:       vs.Views,
			Conversions: vs.Conversions,
			Rate:        rate,
			CILower:     ciLower,
			CIUpper:     ciUpper,
			IsActive:    v.IsActive,
			IsDefault:   v.IsDefault,
		}

		if rate > maxRate {
			maxRate = rate
			leading = i
		}
	}

	var confidence float64
	if len(results) >= 2 {
		challenger := bestChallenger(results, leading)
		confidence = SignificanceTest(
			results[leading].Conversions, results[leading].Views,
			results[challenger].Conversions, results[challenger].Views,
		)
	}

	return &Result{
		Variants:        results,
		Confident:       confidence >= 0.95,
		ConfidenceLevel: confidence,
		Leading:         leading,
	}
}

// bestChallenger returns the highest-rate variant other than the leader.
func bestChallenger(results []VariantResult, leading int) int {
	challenger := -1
	bestRate := -1.0
	for i, r := range results {
		if i == leading {
			continue
		}
		if r.Rate > bestRate {
			bestRate = r.Rate
			challenger = i
		}
	}
	if challenger < 0 {
		return leading
	}
	return challenger
}
