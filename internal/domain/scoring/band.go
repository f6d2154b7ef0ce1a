package scoring

// Band is the qualitative label shown next to an overall score.
type Band string

// Bands from best to worst.
const (
	BandExcellent        Band = "Excellent"
	BandGreat            Band = "Great"
	BandGood             Band = "Good"
	BandFair             Band = "Fair"
	BandNeedsImprovement Band = "Needs Improvement"
)

// Lower bounds (inclusive) of each band.
const (
	excellentFloor = 90
	greatFloor     = 80
	goodFloor      = 70
	fairFloor      = 60
)

// Bands lists every band from best to worst.
func Bands() []Band {
	return []Band{BandExcellent, BandGreat, BandGood, BandFair, BandNeedsImprovement}
}

// BandFor labels an overall score.
func BandFor(score float64) Band {
	switch {
	case score >= excellentFloor:
		return BandExcellent
	case score >= greatFloor:
		return BandGreat
	case score >= goodFloor:
		return BandGood
	case score >= fairFloor:
		return BandFair
	default:
		return BandNeedsImprovement
	}
}
