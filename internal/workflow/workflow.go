// Package workflow holds the validation and reference helpers shared by the
// supply and disposal approval flows.
package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/mashael7430-ux/MPADCS/pkg/db"
	"github.com/mashael7430-ux/MPADCS/pkg/db/models"
	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/security"
)

const referenceAttempts = 5

// ItemInput is one requested line. Reason is only read by disposal.
type ItemInput struct {
	MedicationID uuid.UUID
	Quantity     int
	Reason       enums.DisposalReason
}

// ItemRules toggles the disposal-only reason check.
type ItemRules struct {
	RequireReason bool
}

// ValidateItems checks every line and reports all problems at once.
func ValidateItems(items []ItemInput, rules ItemRules) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	var errs error
	seen := make(map[uuid.UUID]int, len(items))
	for i, item := range items {
		if item.MedicationID == uuid.Nil {
			errs = multierr.Append(errs, fmt.Errorf("items[%d]: medication id required", i))
		} else if first, dup := seen[item.MedicationID]; dup {
			errs = multierr.Append(errs, fmt.Errorf("items[%d]: duplicates items[%d]", i, first))
		} else {
			seen[item.MedicationID] = i
		}
		if item.Quantity <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("items[%d]: quantity must be > 0", i))
		}
		if rules.RequireReason && !item.Reason.IsValid() {
			errs = multierr.Append(errs, fmt.Errorf("items[%d]: reason must be expired or surplus", i))
		}
	}
	return asValidation(errs, "invalid line items")
}

// ValidateSignature rejects blank attestations.
func ValidateSignature(field, signature string) (string, error) {
	trimmed := strings.TrimSpace(signature)
	if trimmed == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "signature required").
			WithDetails(map[string]any{field: "required"})
	}
	return trimmed, nil
}

// MedicationLookup batch-loads medications.
type MedicationLookup interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Medication, error)
}

// ResolveMedications loads every referenced medication, keyed by id.
// Unknown references are a validation failure.
func ResolveMedications(ctx context.Context, reader MedicationLookup, items []ItemInput) (map[uuid.UUID]models.Medication, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.MedicationID)
	}
	found, err := reader.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Medication, len(found))
	for _, med := range found {
		byID[med.ID] = med
	}
	var errs error
	for i, item := range items {
		if _, ok := byID[item.MedicationID]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("items[%d]: unknown medication %s", i, item.MedicationID))
		}
	}
	if err := asValidation(errs, "unknown medication reference"); err != nil {
		return nil, err
	}
	return byID, nil
}

// MedicationIDs returns the ids referenced by items in order.
func MedicationIDs(items []ItemInput) []uuid.UUID {
	ids := make([]uuid.UUID, len(items))
	for i, item := range items {
		ids[i] = item.MedicationID
	}
	return ids
}

// WithReference runs create with fresh references until one is not taken.
func WithReference(prefix, constraint string, create func(reference string) error) (string, error) {
	var lastErr error
	for attempt := 0; attempt < referenceAttempts; attempt++ {
		reference, err := security.GenerateReference(prefix)
		if err != nil {
			return "", err
		}
		err = create(reference)
		if err == nil {
			return reference, nil
		}
		if !db.IsUniqueViolation(err, constraint) {
			return "", err
		}
		lastErr = err
	}
	return "", pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "could not allocate a unique reference")
}

// RequireSecondSigner enforces dual control: the resolver must not be the initiator.
func RequireSecondSigner(initiator, resolver uuid.UUID) error {
	if initiator == resolver {
		return pkgerrors.New(pkgerrors.CodeForbidden, "resolver must differ from initiator")
	}
	return nil
}

// AlreadyResolved reports a second resolution attempt.
func AlreadyResolved(id uuid.UUID, status string) error {
	return pkgerrors.New(pkgerrors.CodeAlreadyResolved, "request already resolved").
		WithDetails(map[string]any{"id": id, "status": status})
}

func asValidation(errs error, message string) error {
	if errs == nil {
		return nil
	}
	problems := multierr.Errors(errs)
	details := make([]string, len(problems))
	for i, problem := range problems {
		details[i] = problem.Error()
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, errs, message).
		WithDetails(map[string]any{"items": details})
}
