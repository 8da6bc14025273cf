package diagnostics

// Grade constants returned by GradeOf.
const (
	GradeHealthy  = "healthy"
	GradeDegraded = "degraded"
	GradeCritical = "critical"
	GradeUnknown  = "unknown"
)

// Thresholds that map an overall score to a grade.
const (
	ThresholdHealthy  = 85
	ThresholdDegraded = 60
)

// GradeOf returns the display grade for a run's overall score.
// A run that reported no checks at all is "unknown" rather than critical,
// even though its OverallScore is 0.
func GradeOf(r Run) string {
	if r.checkCount() == 0 {
		return GradeUnknown
	}
	return gradeFromScore(OverallScore(r))
}

// gradeFromScore maps a rounded score to a grade.
func gradeFromScore(score int) string {
	switch {
	case score >= ThresholdHealthy:
		return GradeHealthy
	case score >= ThresholdDegraded:
		return GradeDegraded
	default:
		return GradeCritical
	}
}

// checkCount returns how many of the six check fields are present.
func (r Run) checkCount() int {
	n := 0
	for _, v := range r.checks() {
		if v != nil {
			n++
		}
	}
	return n
}
