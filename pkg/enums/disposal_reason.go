package enums

import "fmt"

// DisposalReason tags why a line item leaves the unit.
type DisposalReason string

const (
	DisposalReasonExpired DisposalReason = "expired"
	DisposalReasonSurplus DisposalReason = "surplus"
)

var validDisposalReasons = []DisposalReason{
	DisposalReasonExpired,
	DisposalReasonSurplus,
}

// IsValid reports whether the value is a known DisposalReason.
func (r DisposalReason) IsValid() bool {
	for _, candidate := range validDisposalReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseDisposalReason converts raw input into a DisposalReason.
func ParseDisposalReason(value string) (DisposalReason, error) {
	for _, candidate := range validDisposalReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid disposal reason %q", value)
}
