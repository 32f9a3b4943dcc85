package estimator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/mashael7430-ux/MPADCS/pkg/config"
	pkgerrors "github.com/mashael7430-ux/MPADCS/pkg/errors"
)

const (
	defaultModel      = "gemini-2.5-flash"
	defaultAPIVersion = "v1beta"
	defaultTimeout    = 20 * time.Second
	// MaxImageBytes bounds the decoded tray image accepted for estimation.
	MaxImageBytes = 8 << 20
)

var (
	errAPIKeyRequired = errors.New("gemini api key is required")
	allowedMimeTypes  = map[string]struct{}{
		"image/jpeg": {},
		"image/png":  {},
		"image/webp": {},
	}
)

// Estimate is a validated pill count read from a tray photo.
type Estimate struct {
	Count                int     `json:"count"`
	Confidence           float64 `json:"confidence"`
	IdentifiedMedication string  `json:"identifiedMedication,omitempty"`
	Warning              string  `json:"warning,omitempty"`
}

// Request carries one photo and the medication the tray should contain.
type Request struct {
	Image          []byte
	MimeType       string
	ExpectedName   string
	ExpectedDosage string
}

// Estimator produces pill counts from images.
type Estimator interface {
	Estimate(ctx context.Context, req Request) (*Estimate, error)
}

// contentGenerator is the slice of genai.Models the client calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client asks Gemini for a structured pill count through the genai SDK.
type Client struct {
	models contentGenerator
	model  string
}

type settings struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// Option configures optional client behavior.
type Option func(*settings)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithBaseURL overrides the Gemini API base URL.
func WithBaseURL(baseURL string) Option {
	return func(s *settings) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			s.baseURL = trimmed
		}
	}
}

// WithModel overrides the model name.
func WithModel(model string) Option {
	return func(s *settings) {
		trimmed := strings.TrimSpace(model)
		if trimmed != "" {
			s.model = trimmed
		}
	}
}

// NewClient builds the estimator client given an API key.
func NewClient(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	s := settings{
		model:      defaultModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}

	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     trimmedKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: s.httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    s.baseURL,
			APIVersion: defaultAPIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{models: sdk.Models, model: s.model}, nil
}

// NewFromConfig builds a client from configuration. It returns nil without
// error when no API key is configured, leaving manual counts as the only source.
func NewFromConfig(ctx context.Context, cfg config.EstimatorConfig) (*Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewClient(ctx, cfg.APIKey,
		WithBaseURL(cfg.BaseURL),
		WithModel(cfg.Model),
		WithHTTPClient(&http.Client{Timeout: timeout}),
	)
}

var responseSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"count": {
			Type:        genai.TypeInteger,
			Description: "The number of pills counted in the image.",
		},
		"confidence": {
			Type:        genai.TypeNumber,
			Description: "Confidence score of the count and identification, from 0 to 1.",
		},
		"identifiedMedication": {
			Type:        genai.TypeString,
			Description: "The medication identified from its visual appearance.",
		},
		"warning": {
			Type:        genai.TypeString,
			Description: "Set when the pills do not match the expected medication.",
		},
	},
	Required: []string{"count", "confidence"},
}

func buildPrompt(req Request) string {
	expected := strings.TrimSpace(req.ExpectedName)
	if dosage := strings.TrimSpace(req.ExpectedDosage); dosage != "" {
		expected += " " + dosage
	}
	return fmt.Sprintf(`Analyze this image of medications on a counting tray.
1. Count the number of individual pills visible on the tray.
2. Verify whether they match the visual characteristics of %q.
Return count (integer), confidence (0-1), identifiedMedication (string) and warning (string, only if they do not match).`, expected)
}

// Estimate sends the image to the model and validates the structured reply.
// A canceled context yields CodeCancelled; any other failure yields
// CodeEstimatorFailure so callers can fall back to a manual count.
func (c *Client) Estimate(ctx context.Context, req Request) (*Estimate, error) {
	if c == nil || c.models == nil {
		return nil, pkgerrors.New(pkgerrors.CodeEstimatorFailure, "pill count estimator not configured")
	}
	if len(req.Image) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image is required")
	}
	if len(req.Image) > MaxImageBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image exceeds maximum size")
	}
	mimeType := strings.ToLower(strings.TrimSpace(req.MimeType))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	if _, ok := allowedMimeTypes[mimeType]; !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported image type").WithDetails(map[string]any{"mimeType": mimeType})
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(req.Image, mimeType),
			genai.NewPartFromText(buildPrompt(req)),
		}, genai.RoleUser),
	}
	resp, err := c.models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeCancelled, ctxErr, "estimate canceled")
		}
		if code, ok := upstreamStatus(err); ok {
			return nil, pkgerrors.Wrap(pkgerrors.CodeEstimatorFailure, err, "estimate request failed").
				WithDetails(map[string]any{"status": code})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeEstimatorFailure, err, "execute estimate request")
	}

	text := ""
	if resp != nil {
		text = strings.TrimSpace(resp.Text())
	}
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeEstimatorFailure, "empty response from estimator")
	}
	return parseEstimate(text)
}

func upstreamStatus(err error) (int, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, true
	}
	return 0, false
}

func parseEstimate(text string) (*Estimate, error) {
	var raw struct {
		Count                *float64 `json:"count"`
		Confidence           *float64 `json:"confidence"`
		IdentifiedMedication string   `json:"identifiedMedication"`
		Warning              string   `json:"warning"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeEstimatorFailure, err, "estimator returned malformed json")
	}
	if raw.Count == nil || raw.Confidence == nil {
		return nil, pkgerrors.New(pkgerrors.CodeEstimatorFailure, "estimator omitted count or confidence")
	}
	count := *raw.Count
	if count < 0 || count != float64(int(count)) {
		return nil, pkgerrors.New(pkgerrors.CodeEstimatorFailure, "estimator returned an invalid count")
	}
	confidence := *raw.Confidence
	if confidence < 0 || confidence > 1 {
		return nil, pkgerrors.New(pkgerrors.CodeEstimatorFailure, "estimator returned confidence outside [0,1]")
	}
	return &Estimate{
		Count:                int(count),
		Confidence:           confidence,
		IdentifiedMedication: strings.TrimSpace(raw.IdentifiedMedication),
		Warning:              strings.TrimSpace(raw.Warning),
	}, nil
}
