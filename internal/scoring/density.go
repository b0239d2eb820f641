package scoring

type EvidenceDensity string

const (
	DensityRich     EvidenceDensity = "RICH"
	DensityModerate EvidenceDensity = "MODERATE"
	DensityThin     EvidenceDensity = "THIN"
)

const (
	// StrongConfidenceThreshold is exclusive: a record at exactly 0.60 is not strong.
	StrongConfidenceThreshold = 0.60

	richStrongCount     = 8
	moderateStrongCount = 4
)

// ComputeEvidenceDensity classifies how much high-confidence evidence exists.
func ComputeEvidenceDensity(evidence []Evidence) (EvidenceDensity, error) {
	if err := ValidateAll(evidence); err != nil {
		return "", err
	}
	strong := 0
	for _, e := range evidence {
		if e.Confidence > StrongConfidenceThreshold {
			strong++
		}
	}
	switch {
	case strong >= richStrongCount:
		return DensityRich, nil
	case strong >= moderateStrongCount:
		return DensityModerate, nil
	default:
		return DensityThin, nil
	}
}
