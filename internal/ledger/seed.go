package ledger

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
)

type seedMedication struct {
	name      string
	dosage    string
	ref       string
	stock     int
	threshold int
	category  string
	expiry    string
	kind      enums.MedicationKind
}

var defaultMedications = []seedMedication{
	{"Lasix 40 mg TAB", "40 mg", "LSX-40-001", 50, 10, "Diuretics", "2028-05-01", enums.MedicationKindDrug},
	{"Captopril 25 mg TAB", "25 mg", "CPT-25-012", 40, 10, "Antihypertensives", "2026-05-01", enums.MedicationKindDrug},
	{"Paracetamol 500 mg TAB", "500 mg", "PCM-500-101", 100, 20, "Analgesics", "2028-05-01", enums.MedicationKindDrug},
	{"FLU Vaccine", "Adult Dose", "VAC-FLU-S", 67, 10, "Adult Vaccine", "2026-06-01", enums.MedicationKindVaccineAdult},
	{"HEXA Vaccine", "Pediatric", "VAC-HEX-P", 51, 8, "Pediatric Vaccine", "2026-02-01", enums.MedicationKindVaccineChild},
}

// DefaultMedications returns the starter catalogue for an empty ledger.
func DefaultMedications(now time.Time) []models.Medication {
	out := make([]models.Medication, 0, len(defaultMedications))
	for _, seed := range defaultMedications {
		expiry, _ := time.Parse(time.DateOnly, seed.expiry)
		out = append(out, models.Medication{
			Name:         seed.name,
			Dosage:       seed.dosage,
			RefNumber:    seed.ref,
			CurrentStock: seed.stock,
			MinThreshold: seed.threshold,
			Category:     seed.category,
			ExpiryDate:   expiry,
			Kind:         seed.kind,
			LastUpdated:  now,
		})
	}
	return out
}

// SeedDefaults inserts the starter catalogue when no medication exists yet.
// It returns the number of rows inserted.
func (s *service) SeedDefaults(ctx context.Context) (int, error) {
	inserted := 0
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		for _, med := range DefaultMedications(s.now().UTC()) {
			med := med
			if err := repo.Create(ctx, &med); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		s.logg.Info(s.logg.WithField(ctx, "count", inserted), "seeded default medications")
	}
	return inserted, nil
}
