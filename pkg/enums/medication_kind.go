package enums

import "fmt"

// MedicationKind classifies a stock-keeping unit for inventory views.
type MedicationKind string

const (
	MedicationKindDrug         MedicationKind = "drug"
	MedicationKindVaccineAdult MedicationKind = "vaccine_adult"
	MedicationKindVaccineChild MedicationKind = "vaccine_child"
)

var validMedicationKinds = []MedicationKind{
	MedicationKindDrug,
	MedicationKindVaccineAdult,
	MedicationKindVaccineChild,
}

// String implements fmt.Stringer.
func (k MedicationKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known MedicationKind.
func (k MedicationKind) IsValid() bool {
	for _, candidate := range validMedicationKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseMedicationKind converts raw input into a MedicationKind.
func ParseMedicationKind(value string) (MedicationKind, error) {
	for _, candidate := range validMedicationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid medication kind %q", value)
}
