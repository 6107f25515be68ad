package calculator

// SizeTier is a predefined size and weight bracket with its own pricing coefficients.
// Dimensions share one linear unit, MaxWeight is the inclusive weight ceiling.
type SizeTier struct {
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Depth      float64 `json:"depth"`
	MaxWeight  float64 `json:"maxWeight"`
	SizeCoef   float64 `json:"sizeCoef"`
	WeightCoef float64 `json:"weightCoef"`
}

// Request describes a single parcel to price.
type Request struct {
	Width    float64
	Height   float64
	Depth    float64
	Weight   float64
	Distance float64
	Strict   bool
}

// Mode reports which branch produced the size multiplier.
type Mode string

const (
	ModeStrict       Mode = "strict"
	ModeInterpolated Mode = "interpolated"
	ModeExtrapolated Mode = "extrapolated"
)

// Estimate itemizes how a cost was derived.
// Total equals BaseCost * SizeMultiplier * DistanceCoef and is never rounded.
type Estimate struct {
	Mode           Mode    `json:"mode"`
	BaseCost       float64 `json:"baseCost"`
	SizeMultiplier float64 `json:"sizeMultiplier"`
	DistanceCoef   float64 `json:"distanceCoef"`
	Total          float64 `json:"total"`
}

// Calculator describes the behaviour required from a shipment cost calculator.
type Calculator interface {
	CalculateCost(width, height, depth, weight, distance float64, strict bool) (float64, error)
	Estimate(req Request) (Estimate, error)
	Tiers() []SizeTier
}
