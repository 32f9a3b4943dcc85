package reconciliation

import (
	"context"
	"errors"
	"testing"

	"github.com/mashael7430-ux/MPADCS/pkg/enums"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
	"github.com/mashael7430-ux/MPADCS/pkg/estimator"
)

type stubEstimator struct {
	estimate *estimator.Estimate
	err      error
	calls    int
	last     estimator.Request
}

func (s *stubEstimator) Estimate(_ context.Context, req estimator.Request) (*estimator.Estimate, error) {
	s.calls++
	s.last = req
	return s.estimate, s.err
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		expected    int
		observed    int
		verified    bool
		discrepancy int
	}{
		{"exact match", 40, 40, true, 0},
		{"short count", 40, 38, false, -2},
		{"over count", 40, 41, false, 1},
		{"empty tray", 0, 0, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.expected, tt.observed)
			if got.Verified != tt.verified || got.Discrepancy != tt.discrepancy {
				t.Fatalf("unexpected classification %+v", got)
			}
		})
	}
}

func TestManualCount(t *testing.T) {
	outcome := ManualCount(12).Observe(context.Background(), Expectation{Expected: 12})
	if outcome.Kind != enums.ObservationValue || outcome.Count != 12 || outcome.Source != enums.ObservationSourceManual {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	negative := ManualCount(-1).Observe(context.Background(), Expectation{})
	if _, err := negative.Value(); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	canceled := ManualCount(3).Observe(ctx, Expectation{})
	if canceled.Kind != enums.ObservationCancelled {
		t.Fatalf("expected cancelled, got %+v", canceled)
	}
	if _, err := canceled.Value(); !pkgerrors.Is(err, pkgerrors.CodeCancelled) {
		t.Fatalf("expected cancelled error, got %v", err)
	}
}

func TestEstimatorSourceValue(t *testing.T) {
	stub := &stubEstimator{estimate: &estimator.Estimate{Count: 38, Confidence: 0.7, IdentifiedMedication: "Lasix", Warning: "two pills overlap"}}
	source := EstimatorSource{Estimator: stub, Image: []byte{1, 2}, MimeType: "image/png"}

	outcome := source.Observe(context.Background(), Expectation{MedicationName: "Lasix 40 mg TAB", Dosage: "40 mg", Expected: 40})
	if outcome.Kind != enums.ObservationValue || outcome.Count != 38 || outcome.Source != enums.ObservationSourceEstimator {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Confidence == nil || *outcome.Confidence != 0.7 || outcome.IdentifiedLabel != "Lasix" {
		t.Fatalf("estimator evidence not carried: %+v", outcome)
	}
	if stub.last.ExpectedName != "Lasix 40 mg TAB" || stub.last.MimeType != "image/png" {
		t.Fatalf("unexpected estimator request %+v", stub.last)
	}
}

func TestEstimatorSourceFailureAndFallback(t *testing.T) {
	failure := pkgerrors.New(pkgerrors.CodeEstimatorFailure, "bad reply")

	noFallback := EstimatorSource{Estimator: &stubEstimator{err: failure}, Image: []byte{1}}
	outcome := noFallback.Observe(context.Background(), Expectation{})
	if outcome.Kind != enums.ObservationFailed {
		t.Fatalf("expected failed outcome, got %+v", outcome)
	}
	_, err := outcome.Value()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeEstimatorFailure {
		t.Fatalf("expected estimator failure, got %v", err)
	}
	if details, _ := typed.Details().(map[string]any); details["manualFallback"] != true {
		t.Fatalf("expected manual fallback hint, got %v", typed.Details())
	}

	fallback := 7
	withFallback := EstimatorSource{Estimator: &stubEstimator{err: failure}, Image: []byte{1}, Fallback: &fallback}
	outcome = withFallback.Observe(context.Background(), Expectation{})
	if outcome.Kind != enums.ObservationValue || outcome.Count != 7 || outcome.Source != enums.ObservationSourceManualFallback {
		t.Fatalf("expected manual fallback outcome, got %+v", outcome)
	}

	unconfigured := EstimatorSource{Image: []byte{1}}
	if got := unconfigured.Observe(context.Background(), Expectation{}); got.Kind != enums.ObservationFailed {
		t.Fatalf("expected failed outcome without estimator, got %+v", got)
	}
}

func TestEstimatorSourceCancellation(t *testing.T) {
	stub := &stubEstimator{err: pkgerrors.Wrap(pkgerrors.CodeCancelled, context.Canceled, "estimate canceled")}
	fallback := 3
	source := EstimatorSource{Estimator: stub, Image: []byte{1}, Fallback: &fallback}

	outcome := source.Observe(context.Background(), Expectation{})
	if outcome.Kind != enums.ObservationCancelled {
		t.Fatalf("cancellation must win over the fallback, got %+v", outcome)
	}
	_, err := outcome.Value()
	if !pkgerrors.Is(err, pkgerrors.CodeCancelled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected wrapped cancellation, got %v", err)
	}
}
