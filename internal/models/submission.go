package models

import (
	"fmt"
	"time"
)

// SubmissionStatus is the review workflow state of a document submission.
type SubmissionStatus string

const (
	StatusPending     SubmissionStatus = "pending"
	StatusApproved    SubmissionStatus = "approved"
	StatusRejected    SubmissionStatus = "rejected"
	StatusNeedsReview SubmissionStatus = "needs_review"
)

// Valid reports whether s is one of the known workflow states.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusNeedsReview:
		return true
	}
	return false
}

// Terminal reports whether a submission in state s can no longer be reviewed.
func (s SubmissionStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// VerifierResult is the per-file output of the document verifier: a binary
// pass/fail label, the model's confidence in [0,1] and a short explanation
// meant for the reviewing admin.
type VerifierResult struct {
	Label      int     `firestore:"label" json:"label"`
	Confidence float64 `firestore:"confidence" json:"confidence"`
	Reason     string  `firestore:"reason" json:"reason"`
}

// Submission is the master record for one batch of uploaded files checked
// against a base document. All per-file slices are index-aligned with the
// order the files were uploaded in.
type Submission struct {
	ID string `firestore:"-" json:"id"`

	UserID               string `firestore:"userId" json:"user_id"`
	BaseDocumentID       string `firestore:"baseDocumentId" json:"base_document_id"`
	BaseDocumentTitle    string `firestore:"baseDocumentTitle" json:"base_document_title"`
	BaseDocumentCategory string `firestore:"baseDocumentCategory" json:"base_document_category"`

	Filenames     []string         `firestore:"filenames" json:"filenames"`
	FileTypes     []string         `firestore:"fileTypes" json:"file_types"`
	OriginalURLs  []string         `firestore:"fileUrlsOriginal" json:"file_urls_original"`
	ProcessedURLs []*string        `firestore:"fileUrlsProcessed" json:"file_urls_processed"`
	Evidence      []Evidence       `firestore:"boundingBoxes" json:"bounding_boxes"`
	Results       []VerifierResult `firestore:"verifierResults" json:"verifier_results"`

	Label      int     `firestore:"aiPredictionLabel" json:"ai_prediction_label"`
	Confidence float64 `firestore:"aiConfidenceScore" json:"ai_confidence_score"`
	Reason     string  `firestore:"aiReason" json:"ai_reason"`

	// Legacy percentage kept for UI display.
	SimilarityPercentage float64 `firestore:"similarityPercentage" json:"similarity_percentage"`

	Notes  string           `firestore:"notes" json:"notes"`
	Status SubmissionStatus `firestore:"status" json:"status"`

	SubmittedAt time.Time  `firestore:"submittedAt" json:"submitted_at"`
	ReviewedAt  *time.Time `firestore:"reviewedAt" json:"reviewed_at,omitempty"`
	ReviewedBy  string     `firestore:"reviewedBy,omitempty" json:"reviewed_by,omitempty"`
	AdminNotes  string     `firestore:"adminNotes,omitempty" json:"admin_notes,omitempty"`
}

// FileCount returns the number of files in the submission.
func (s *Submission) FileCount() int {
	return len(s.Filenames)
}

// ValidateAlignment checks that every per-file slice has one entry per
// uploaded file. A mismatch is a programming defect in the caller, not a
// recoverable condition.
func (s *Submission) ValidateAlignment() error {
	n := len(s.Filenames)
	if n == 0 {
		return fmt.Errorf("submission has no files")
	}
	if len(s.FileTypes) != n || len(s.OriginalURLs) != n || len(s.ProcessedURLs) != n ||
		len(s.Evidence) != n || len(s.Results) != n {
		return fmt.Errorf("per-file arrays misaligned: filenames=%d fileTypes=%d originals=%d processed=%d evidence=%d results=%d",
			n, len(s.FileTypes), len(s.OriginalURLs), len(s.ProcessedURLs), len(s.Evidence), len(s.Results))
	}
	return nil
}
