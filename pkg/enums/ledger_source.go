package enums

import "fmt"

// LedgerSource names the writer of a stock delta.
type LedgerSource string

const (
	LedgerSourceAdministration LedgerSource = "administration"
	LedgerSourceSupply         LedgerSource = "supply"
	LedgerSourceDisposal       LedgerSource = "disposal"
	LedgerSourceAdjustment     LedgerSource = "adjustment"
)

var validLedgerSources = []LedgerSource{
	LedgerSourceAdministration,
	LedgerSourceSupply,
	LedgerSourceDisposal,
	LedgerSourceAdjustment,
}

// IsValid reports whether the value is a known LedgerSource.
func (s LedgerSource) IsValid() bool {
	for _, candidate := range validLedgerSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// Clamps reports whether negative results floor at zero for this source.
// Only disposal completion clamps; every other writer is strict.
func (s LedgerSource) Clamps() bool {
	return s == LedgerSourceDisposal
}

// ParseLedgerSource converts raw input into a LedgerSource.
func ParseLedgerSource(value string) (LedgerSource, error) {
	for _, candidate := range validLedgerSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger source %q", value)
}
