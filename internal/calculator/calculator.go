package calculator

import (
	"fmt"
	"math"
)

const (
	baseCost = 500.0

	dimensionGrowth = 1.03
	weightGrowth    = 1.05

	distanceBracket = 10000.0
	distanceGrowth  = 1.005
)

// defaultTiers is ordered; strict lookup and the bracket search both depend on table order.
var defaultTiers = []SizeTier{
	{Width: 34, Height: 27, Depth: 2, MaxWeight: 0.5, SizeCoef: 1.05, WeightCoef: 1.1},
	{Width: 17, Height: 12, Depth: 9, MaxWeight: 0.5, SizeCoef: 1.1, WeightCoef: 1.15},
	{Width: 23, Height: 19, Depth: 10, MaxWeight: 2, SizeCoef: 1.2, WeightCoef: 1.25},
	{Width: 33, Height: 25, Depth: 25, MaxWeight: 5, SizeCoef: 1.3, WeightCoef: 1.35},
	{Width: 60, Height: 35, Depth: 30, MaxWeight: 18, SizeCoef: 1.4, WeightCoef: 1.45},
	{Width: 60, Height: 60, Depth: 30, MaxWeight: 20, SizeCoef: 1.5, WeightCoef: 1.55},
}

type tierCalculator struct {
	tiers []SizeTier
}

// New creates a Calculator backed by the built-in tier table.
func New() Calculator {
	return &tierCalculator{tiers: defaultTiers}
}

// DefaultTiers returns a copy of the built-in tier table.
func DefaultTiers() []SizeTier {
	out := make([]SizeTier, len(defaultTiers))
	copy(out, defaultTiers)
	return out
}

// BaseCost is the currency amount every multiplier scales.
func BaseCost() float64 {
	return baseCost
}

func (c *tierCalculator) Tiers() []SizeTier {
	out := make([]SizeTier, len(c.tiers))
	copy(out, c.tiers)
	return out
}

func (c *tierCalculator) CalculateCost(width, height, depth, weight, distance float64, strict bool) (float64, error) {
	est, err := c.Estimate(Request{
		Width:    width,
		Height:   height,
		Depth:    depth,
		Weight:   weight,
		Distance: distance,
		Strict:   strict,
	})
	if err != nil {
		return 0, err
	}
	return est.Total, nil
}

func (c *tierCalculator) Estimate(req Request) (Estimate, error) {
	if err := validateRequest(req); err != nil {
		return Estimate{}, err
	}

	var (
		mode       Mode
		multiplier float64
	)
	if req.Strict {
		m, err := c.strictMultiplier(req)
		if err != nil {
			return Estimate{}, err
		}
		mode, multiplier = ModeStrict, m
	} else {
		mode, multiplier = c.interpolatedMultiplier(req)
	}

	distanceCoef := DistanceCoef(req.Distance)
	total := baseCost * multiplier * distanceCoef
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return Estimate{}, ErrNonFiniteCost
	}

	return Estimate{
		Mode:           mode,
		BaseCost:       baseCost,
		SizeMultiplier: multiplier,
		DistanceCoef:   distanceCoef,
		Total:          total,
	}, nil
}

// DistanceCoef grows the cost by 0.5% for every started 10000-unit bracket of distance.
func DistanceCoef(distance float64) float64 {
	brackets := math.Ceil(distance / distanceBracket)
	return math.Pow(distanceGrowth, brackets)
}

func (c *tierCalculator) strictMultiplier(req Request) (float64, error) {
	for _, t := range c.tiers {
		if req.Width == t.Width && req.Height == t.Height && req.Depth == t.Depth && req.Weight <= t.MaxWeight {
			return t.SizeCoef * t.WeightCoef, nil
		}
	}
	return 0, fmt.Errorf("%w: %gx%gx%g at weight %g", ErrTierNotFound, req.Width, req.Height, req.Depth, req.Weight)
}

// interpolatedMultiplier looks for the first consecutive pair of tiers that brackets all four
// axes at once. Axes are never bracketed independently.
func (c *tierCalculator) interpolatedMultiplier(req Request) (Mode, float64) {
	for i := 0; i+1 < len(c.tiers); i++ {
		lower, upper := c.tiers[i], c.tiers[i+1]
		if !within(req.Width, lower.Width, upper.Width) ||
			!within(req.Height, lower.Height, upper.Height) ||
			!within(req.Depth, lower.Depth, upper.Depth) ||
			!within(req.Weight, lower.MaxWeight, upper.MaxWeight) {
			continue
		}

		sizeCoef := interpolateSize(lower, upper, req)
		weightCoef := interpolate(lower.WeightCoef, upper.WeightCoef, lower.MaxWeight, upper.MaxWeight, req.Weight)
		return ModeInterpolated, sizeCoef * weightCoef
	}

	return ModeExtrapolated, extrapolate(c.tiers[len(c.tiers)-1], req)
}

// interpolateSize blends sizeCoef along width. When both tiers share a width it falls back
// to height, then depth, and finally to the upper tier's coefficient.
func interpolateSize(lower, upper SizeTier, req Request) float64 {
	switch {
	case lower.Width != upper.Width:
		return interpolate(lower.SizeCoef, upper.SizeCoef, lower.Width, upper.Width, req.Width)
	case lower.Height != upper.Height:
		return interpolate(lower.SizeCoef, upper.SizeCoef, lower.Height, upper.Height, req.Height)
	case lower.Depth != upper.Depth:
		return interpolate(lower.SizeCoef, upper.SizeCoef, lower.Depth, upper.Depth, req.Depth)
	default:
		return upper.SizeCoef
	}
}

// interpolate is linear interpolation of coef over value. Equal endpoints yield coef2.
func interpolate(coef1, coef2, value1, value2, value float64) float64 {
	if value1 == value2 {
		return coef2
	}
	ratio := (value - value1) / (value2 - value1)
	return coef1 + ratio*(coef2-coef1)
}

// extrapolate grows each axis exponentially away from the last tier. Inputs below the
// last tier produce negative exponents; there is no lower clamp.
func extrapolate(last SizeTier, req Request) float64 {
	widthCoef := math.Pow(dimensionGrowth, (req.Width-last.Width)/last.Width)
	heightCoef := math.Pow(dimensionGrowth, (req.Height-last.Height)/last.Height)
	depthCoef := math.Pow(dimensionGrowth, (req.Depth-last.Depth)/last.Depth)
	weightCoef := math.Pow(weightGrowth, (req.Weight-last.MaxWeight)/last.MaxWeight)

	totalSizeCoef := last.SizeCoef * widthCoef * heightCoef * depthCoef
	totalWeightCoef := last.WeightCoef * weightCoef

	return totalSizeCoef * totalWeightCoef
}

func within(value, lo, hi float64) bool {
	return value >= lo && value <= hi
}

func validateRequest(req Request) error {
	for _, v := range [...]float64{req.Width, req.Height, req.Depth, req.Weight, req.Distance} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return ErrInvalidInput
		}
	}
	return nil
}
