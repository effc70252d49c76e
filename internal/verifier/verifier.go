// Package verifier scores a submitted file against a base document
// description using the Vertex AI verifier model. Scoring never fails the
// caller: any upstream error degrades to a rejecting result with an
// explanatory reason.
package verifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/palengkehub/vendorpermits/internal/models"
)

// VerifiedThreshold is the confidence cutoff separating verified from
// rejected files. It is the single source of truth for the pass/fail
// decision; the rubric prompt interpolates it and LabelFromConfidence
// applies it.
const VerifiedThreshold = 0.70

// LabelFromConfidence derives the binary verdict from a confidence score.
func LabelFromConfidence(confidence float64) int {
	if confidence >= VerifiedThreshold {
		return 1
	}
	return 0
}

const rubricTemplate = `Compare the User Document against this requirement: "%s".

STEP 1: ANALYZE VISUAL EVIDENCE.
- Check for specific headers, logos, and text clarity.
- Check for signs of forgery or wrong document type.

STEP 2: CALCULATE CONFIDENCE SCORE (0.0 to 1.0).
- 0.90 - 1.00: Perfect Match. Clear text, correct headers.
- %.2f - 0.89: Good Match. Minor blur but legible.
- 0.40 - 0.69: Ambiguous. Hard to read or missing some headers.
- 0.00 - 0.39: Reject. Wrong document, blank, or completely unreadable.

STEP 3: DETERMINE FINAL LABEL.
- If Score >= %.2f -> 1 (Verified)
- If Score < %.2f  -> 0 (Rejected)

RETURN JSON ONLY:
{
    "ai_prediction_label": 0 or 1,
    "ai_confidence_score": float,
    "reason": "Short explanation for the admin."
}`

// RubricPrompt builds the grading instructions sent alongside the file.
func RubricPrompt(templateDescription string) string {
	return fmt.Sprintf(rubricTemplate, templateDescription, VerifiedThreshold, VerifiedThreshold, VerifiedThreshold)
}

// generativeModel is the slice of *genai.GenerativeModel the scorer uses.
type generativeModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Scorer calls the verifier model for one file at a time.
type Scorer struct {
	model   generativeModel
	timeout time.Duration
}

// NewScorer creates a Scorer around a pre-configured verifier model. A zero
// timeout defaults to 60s per call.
func NewScorer(model generativeModel, timeout time.Duration) *Scorer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Scorer{model: model, timeout: timeout}
}

// verifierResponse mirrors the JSON object the rubric demands.
type verifierResponse struct {
	Label      int     `json:"ai_prediction_label"`
	Confidence float64 `json:"ai_confidence_score"`
	Reason     string  `json:"reason"`
}

// Score submits the file and rubric to the verifier model and returns the
// per-file verdict. It never returns an error: a failed or unparsable call
// yields label 0, confidence 0.0 and a reason naming the failure, so one
// unscoreable file degrades instead of aborting the batch.
func (s *Scorer) Score(ctx context.Context, fileBytes []byte, mimeType, templateDescription string) models.VerifierResult {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filePart := genai.Blob{
		MIMEType: mimeType,
		Data:     fileBytes,
	}
	prompt := genai.Text(RubricPrompt(templateDescription))

	resp, err := s.model.GenerateContent(callCtx, filePart, prompt)
	if err != nil {
		slog.Error("Verifier model call failed", "error", err)
		return failedResult(fmt.Sprintf("AI verification failed: %v", err))
	}

	raw := extractText(resp)
	if raw == "" {
		slog.Error("Verifier model returned an empty response")
		return failedResult("AI verification failed: empty model response")
	}

	var parsed verifierResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		slog.Error("Failed to parse verifier JSON", "error", err, "responseBody", raw)
		return failedResult("AI verification failed: model returned malformed JSON")
	}

	confidence := clamp01(parsed.Confidence)
	return models.VerifierResult{
		// The label is recomputed here rather than trusted from the model, so
		// the threshold applies uniformly.
		Label:      LabelFromConfidence(confidence),
		Confidence: confidence,
		Reason:     strings.TrimSpace(parsed.Reason),
	}
}

func failedResult(reason string) models.VerifierResult {
	return models.VerifierResult{Label: 0, Confidence: 0.0, Reason: reason}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// extractText robustly gets the raw text content from the model response and
// strips any markdown fences.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	clean := strings.TrimSpace(sb.String())
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// MIMEForFile resolves the MIME type sent to the verifier from the upload's
// declared content type, falling back to the filename extension.
func MIMEForFile(contentType, filename string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "pdf"):
		return "application/pdf"
	case strings.Contains(ct, "png"):
		return "image/png"
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"):
		return "image/jpeg"
	}
	if strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return "application/pdf"
	}
	if strings.HasSuffix(strings.ToLower(filename), ".png") {
		return "image/png"
	}
	return "image/jpeg"
}
