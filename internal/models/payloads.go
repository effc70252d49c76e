package models

import "time"

// These structs define the JSON payloads exchanged over the HTTP surface and
// the review event bus.

// SubmissionSummary is the trimmed view returned right after an upload.
type SubmissionSummary struct {
	ID                   string           `json:"id"`
	UserEmail            string           `json:"user_email"`
	Filenames            []string         `json:"filenames"`
	FileCount            int              `json:"file_count"`
	OriginalViewURLs     []string         `json:"file_urls_original"`
	ProcessedURLs        []*string        `json:"file_urls_processed"`
	Status               SubmissionStatus `json:"status"`
	Label                int              `json:"ai_prediction_label"`
	Confidence           float64          `json:"ai_confidence_score"`
	Reason               string           `json:"ai_reason"`
	SimilarityPercentage float64          `json:"similarity_percentage"`
}

// ReviewRequest is the admin's status-update body.
type ReviewRequest struct {
	Status     SubmissionStatus `json:"status" binding:"required"`
	AdminNotes string           `json:"admin_notes" binding:"required"`
}

// ReviewedEvent is published on the event bus after a review transition
// commits. The notifier worker consumes it to deliver the push message.
type ReviewedEvent struct {
	SubmissionID  string           `json:"submissionId"`
	UserID        string           `json:"userId"`
	DocumentTitle string           `json:"documentTitle"`
	Status        SubmissionStatus `json:"status"`
	AdminNotes    string           `json:"adminNotes"`
	ReviewedAt    time.Time        `json:"reviewedAt"`
}
