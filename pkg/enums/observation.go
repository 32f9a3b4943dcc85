package enums

// ObservationOutcome is the result of the reconciliation suspension point.
type ObservationOutcome string

const (
	ObservationValue     ObservationOutcome = "value"
	ObservationCancelled ObservationOutcome = "cancelled"
	ObservationFailed    ObservationOutcome = "failed"
)

// ObservationSource records where an observed count came from.
type ObservationSource string

const (
	ObservationSourceManual         ObservationSource = "manual"
	ObservationSourceEstimator      ObservationSource = "estimator"
	ObservationSourceManualFallback ObservationSource = "manual_fallback"
)

var validObservationSources = []ObservationSource{
	ObservationSourceManual,
	ObservationSourceEstimator,
	ObservationSourceManualFallback,
}

// IsValid reports whether the value is a known ObservationSource.
func (s ObservationSource) IsValid() bool {
	for _, candidate := range validObservationSources {
		if candidate == s {
			return true
		}
	}
	return false
}
