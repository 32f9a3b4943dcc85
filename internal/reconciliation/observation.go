package reconciliation

import (
	"context"

	"github.com/google/uuid"

	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/estimator"
)

// Expectation describes the count a source is asked to observe.
type Expectation struct {
	MedicationID   uuid.UUID
	MedicationName string
	Dosage         string
	Expected       int
}

// Outcome is the result of one observation: a value, a cancellation or a failure.
type Outcome struct {
	Kind            enums.ObservationOutcome
	Count           int
	Source          enums.ObservationSource
	Confidence      *float64
	IdentifiedLabel string
	Warning         string
	Err             error
}

// Source supplies an observed count. Observe may block on capture or network.
type Source interface {
	Observe(ctx context.Context, exp Expectation) Outcome
}

// Value reports the observed count, or the error that ends the operation
// without any mutation.
func (o Outcome) Value() (int, error) {
	switch o.Kind {
	case enums.ObservationValue:
		return o.Count, nil
	case enums.ObservationCancelled:
		err := o.Err
		if err == nil {
			err = context.Canceled
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeCancelled, err, "observation canceled; nothing was recorded")
	default:
		if typed := pkgerrors.As(o.Err); typed != nil && typed.Code() == pkgerrors.CodeValidation {
			return 0, typed
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeEstimatorFailure, o.Err, "pill count unavailable; enter the count manually").
			WithDetails(map[string]any{"manualFallback": true})
	}
}

func cancelled(err error) Outcome {
	return Outcome{Kind: enums.ObservationCancelled, Err: err}
}

func failed(err error) Outcome {
	return Outcome{Kind: enums.ObservationFailed, Err: err}
}

// ManualCount is an observed count typed in by the operator.
type ManualCount int

func (m ManualCount) Observe(ctx context.Context, _ Expectation) Outcome {
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	if m < 0 {
		return failed(pkgerrors.New(pkgerrors.CodeValidation, "observed count must be >= 0"))
	}
	return Outcome{Kind: enums.ObservationValue, Count: int(m), Source: enums.ObservationSourceManual}
}

// EstimatorSource counts pills from a tray photo. When the estimator fails
// and Fallback is set, the fallback count is used instead.
type EstimatorSource struct {
	Estimator estimator.Estimator
	Image     []byte
	MimeType  string
	Fallback  *int
}

func (s EstimatorSource) Observe(ctx context.Context, exp Expectation) Outcome {
	if err := ctx.Err(); err != nil {
		return cancelled(err)
	}
	if s.Fallback != nil && *s.Fallback < 0 {
		return failed(pkgerrors.New(pkgerrors.CodeValidation, "fallback count must be >= 0"))
	}

	var (
		est *estimator.Estimate
		err error
	)
	if s.Estimator == nil {
		err = pkgerrors.New(pkgerrors.CodeEstimatorFailure, "pill count estimator not configured")
	} else {
		est, err = s.Estimator.Estimate(ctx, estimator.Request{
			Image:          s.Image,
			MimeType:       s.MimeType,
			ExpectedName:   exp.MedicationName,
			ExpectedDosage: exp.Dosage,
		})
	}

	if ctxErr := ctx.Err(); ctxErr != nil || pkgerrors.Is(err, pkgerrors.CodeCancelled) {
		if ctxErr == nil {
			ctxErr = err
		}
		return cancelled(ctxErr)
	}
	if err != nil {
		if s.Fallback != nil {
			return Outcome{
				Kind:    enums.ObservationValue,
				Count:   *s.Fallback,
				Source:  enums.ObservationSourceManualFallback,
				Warning: "estimator unavailable; manual count used",
				Err:     err,
			}
		}
		return failed(err)
	}

	confidence := est.Confidence
	return Outcome{
		Kind:            enums.ObservationValue,
		Count:           est.Count,
		Source:          enums.ObservationSourceEstimator,
		Confidence:      &confidence,
		IdentifiedLabel: est.IdentifiedMedication,
		Warning:         est.Warning,
	}
}

// Classification compares the arithmetic count against the observed one.
// Discrepancy is observed minus expected.
type Classification struct {
	Expected    int  `json:"expectedCount"`
	Observed    int  `json:"observedCount"`
	Verified    bool `json:"verified"`
	Discrepancy int  `json:"discrepancy"`
}

// Classify marks the pair verified only on an exact match. Estimator
// confidence never enters the decision.
func Classify(expected, observed int) Classification {
	return Classification{
		Expected:    expected,
		Observed:    observed,
		Verified:    observed == expected,
		Discrepancy: observed - expected,
	}
}
