// Package profile computes box-plot style digests of execution timing samples.
package profile

import (
	"math"
	"slices"

	"github.com/longregen/amaru/internal/domain"
)

// Bucket indexes of RuntimeProfile.Groups. Values on a boundary are counted
// towards the bucket closer to the median; the median counts as lower quarter.
const (
	LowerOutliers          = iota // below Q1 - 2*IQR
	LowerSuspectedOutliers        // Q1 - 2*IQR to Q1 - IQR
	LowerInnerFence               // Q1 - IQR to Q1
	LowerQuarter                  // Q1 to median
	UpperQuarter                  // median to Q3
	UpperInnerFence               // Q3 to Q3 + IQR
	UpperSuspectedOutliers        // Q3 + IQR to Q3 + 2*IQR
	UpperOutliers                 // above Q3 + 2*IQR

	bucketCount
)

// RuntimeProfile is an immutable statistical digest of one run's samples.
type RuntimeProfile struct {
	Count                       int              `json:"count" msgpack:"count"`
	Minimum                     int64            `json:"minimum" msgpack:"minimum"`
	Maximum                     int64            `json:"maximum" msgpack:"maximum"`
	Mean                        float64          `json:"mean" msgpack:"mean"`
	Median                      float64          `json:"median" msgpack:"median"`
	FirstQuartile               float64          `json:"first_quartile" msgpack:"first_quartile"`
	ThirdQuartile               float64          `json:"third_quartile" msgpack:"third_quartile"`
	StandardDeviation           float64          `json:"standard_deviation" msgpack:"standard_deviation"`
	StandardDeviationNoOutliers float64          `json:"standard_deviation_no_outliers" msgpack:"standard_deviation_no_outliers"`
	Groups                      [bucketCount]int `json:"groups" msgpack:"groups"`
}

var failed = mustNew([]int64{math.MaxInt64})

// Failed returns the sentinel profile recorded for runs that could not be measured.
func Failed() *RuntimeProfile {
	p := *failed
	return &p
}

// IsFailed reports whether p is the sentinel failed profile.
func (p *RuntimeProfile) IsFailed() bool {
	return p == nil || (p.Count == 1 && p.Maximum == math.MaxInt64)
}

// IQR returns the inter-quartile range.
func (p *RuntimeProfile) IQR() float64 {
	return p.ThirdQuartile - p.FirstQuartile
}

// New builds the digest of samples. The input slice is not modified.
func New(samples []int64) (*RuntimeProfile, error) {
	if len(samples) == 0 {
		return nil, domain.NewDomainError(domain.ErrEmptyInput, "cannot build runtime profile")
	}

	values := slices.Clone(samples)
	slices.Sort(values)

	n := len(values)
	p := &RuntimeProfile{
		Count:   n,
		Minimum: values[0],
		Maximum: values[n-1],
	}

	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	p.Mean = sum / float64(n)
	p.Median = quartile(values, 50)
	p.FirstQuartile = quartile(values, 25)
	p.ThirdQuartile = quartile(values, 75)

	var squares float64
	for _, v := range values {
		d := float64(v) - p.Mean
		squares += d * d
	}
	p.StandardDeviation = math.Sqrt(squares / float64(n))

	iqr := p.IQR()
	upperOuterFence := p.ThirdQuartile + 2*iqr
	for _, v := range values {
		p.Groups[bucketOf(float64(v), p, iqr)]++
	}

	var trimmed float64
	for _, v := range values {
		if float64(v) <= upperOuterFence {
			d := float64(v) - p.Mean
			trimmed += d * d
		}
	}
	if kept := n - p.Groups[UpperOutliers]; kept > 0 {
		p.StandardDeviationNoOutliers = math.Sqrt(trimmed / float64(kept))
	}

	return p, nil
}

func mustNew(samples []int64) *RuntimeProfile {
	p, err := New(samples)
	if err != nil {
		panic(err)
	}
	return p
}

func bucketOf(v float64, p *RuntimeProfile, iqr float64) int {
	switch {
	case v < p.FirstQuartile-2*iqr:
		return LowerOutliers
	case v < p.FirstQuartile-iqr:
		return LowerSuspectedOutliers
	case v < p.FirstQuartile:
		return LowerInnerFence
	case v <= p.Median:
		return LowerQuarter
	case v <= p.ThirdQuartile:
		return UpperQuarter
	case v <= p.ThirdQuartile+iqr:
		return UpperInnerFence
	case v <= p.ThirdQuartile+2*iqr:
		return UpperSuspectedOutliers
	default:
		return UpperOutliers
	}
}

// quartile expects sorted, non-empty values.
func quartile(values []int64, percent float64) float64 {
	n := len(values)
	pos := int(math.Ceil(float64(n)*percent/100)) - 1
	if pos < 0 {
		pos = 0
	}
	if n%2 == 1 || pos+1 >= n {
		return float64(values[pos])
	}
	return (float64(values[pos]) + float64(values[pos+1])) / 2
}
