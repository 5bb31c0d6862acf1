package utils

// Quality status bands
const (
	StatusExcellent  = "Excellent"
	StatusGood       = "Good"
	StatusAcceptable = "Acceptable"
	StatusPoor       = "Poor"
	StatusCritical   = "Critical"
)

// QualityScore maps combined impurity (moisture + dust, percent) to a score.
// The thresholds are fixed and inclusive on the upper bound.
func QualityScore(impurity float64) int {
	switch {
	case impurity <= 8:
		return 100
	case impurity <= 15:
		return 85
	case impurity <= 25:
		return 70
	case impurity <= 35:
		return 50
	default:
		return 30
	}
}

// QualityStatus maps a score to its status band.
func QualityStatus(score int) string {
	switch {
	case score >= 90:
		return StatusExcellent
	case score >= 80:
		return StatusGood
	case score >= 70:
		return StatusAcceptable
	case score >= 50:
		return StatusPoor
	default:
		return StatusCritical
	}
}

// Quality is the score and band for one purchase.
type Quality struct {
	Impurity float64
	Score    int
	Status   string
}

// QualityFor combines optional moisture and dust readings; missing readings count as 0.
func QualityFor(moisture, dust *float64) Quality {
	var impurity float64
	if moisture != nil {
		impurity += *moisture
	}
	if dust != nil {
		impurity += *dust
	}
	score := QualityScore(impurity)
	return Quality{Impurity: impurity, Score: score, Status: QualityStatus(score)}
}
