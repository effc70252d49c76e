package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/palengkehub/vendorpermits/internal/evidence"
	"github.com/palengkehub/vendorpermits/internal/models"
	"github.com/palengkehub/vendorpermits/internal/store"
	"github.com/palengkehub/vendorpermits/internal/verifier"
)

// OriginalsFolder is the storage folder user uploads are written to.
const OriginalsFolder = "user_submissions"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrBaseDocumentNotFound = errors.New("base document not found")
	ErrBaseDocumentInactive = errors.New("base document is not active")
	ErrNoFiles              = errors.New("at least one file is required")
)

// FileUpload is one file received from the client, fully buffered.
type FileUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// scorerAPI is the slice of the verifier the service uses.
type scorerAPI interface {
	Score(ctx context.Context, fileBytes []byte, mimeType, templateDescription string) models.VerifierResult
}

// extractorAPI is the slice of the evidence extractor the service uses.
type extractorAPI interface {
	Extract(ctx context.Context, fileBytes []byte, contentType string) (*evidence.Extraction, error)
}

// objectStorage is the slice of the storage uploader the service uses.
type objectStorage interface {
	Upload(ctx context.Context, data []byte, folder, contentType, ext string) (string, error)
	PublicURL(objectName string) string
	SignedViewURL(objectName string, ttl time.Duration) (string, error)
}

// SubmissionConfig holds configuration for the submission service.
type SubmissionConfig struct {
	// SignedURLTTL bounds how long returned original-file view links stay
	// valid.
	SignedURLTTL time.Duration
	// MaxConcurrentFiles caps the per-submission fan-out.
	MaxConcurrentFiles int
}

// SubmissionService orchestrates uploads, verification and evidence
// extraction for one submission, aggregates the per-file verdicts and
// persists the record.
type SubmissionService struct {
	users       store.UserStore
	baseDocs    store.BaseDocumentStore
	submissions store.SubmissionStore
	storage     objectStorage
	scorer      scorerAPI
	extractor   extractorAPI
	config      SubmissionConfig
}

// NewSubmissionService wires the submission pipeline.
func NewSubmissionService(
	users store.UserStore,
	baseDocs store.BaseDocumentStore,
	submissions store.SubmissionStore,
	storage objectStorage,
	scorer scorerAPI,
	extractor extractorAPI,
	config SubmissionConfig,
) *SubmissionService {
	if config.SignedURLTTL <= 0 {
		config.SignedURLTTL = 1 * time.Hour
	}
	if config.MaxConcurrentFiles <= 0 {
		config.MaxConcurrentFiles = 5
	}
	return &SubmissionService{
		users:       users,
		baseDocs:    baseDocs,
		submissions: submissions,
		storage:     storage,
		scorer:      scorer,
		extractor:   extractor,
		config:      config,
	}
}

// fileOutcome collects the per-file results produced during fan-out.
type fileOutcome struct {
	result       models.VerifierResult
	evidence     models.Evidence
	processedURL *string
}

// Submit runs the full pipeline for one batch of files. Originals are
// uploaded first; any upload failure aborts the whole submission. Scoring
// and extraction then run concurrently per file and degrade per-file on
// failure. The record is only persisted once every file has been processed.
func (s *SubmissionService) Submit(ctx context.Context, userID, baseDocumentID, notes string, files []FileUpload) (*models.SubmissionSummary, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	baseDoc, err := s.baseDocs.Get(ctx, baseDocumentID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrBaseDocumentNotFound
		}
		return nil, fmt.Errorf("failed to resolve base document: %w", err)
	}
	if !baseDoc.IsActive {
		return nil, ErrBaseDocumentInactive
	}

	logCtx := slog.With("userId", userID, "baseDocumentId", baseDocumentID, "fileCount", len(files))
	logCtx.Info("Processing submission.", "userEmail", user.Email)

	// The client disconnecting must not strand half-uploaded files with no
	// record, so the pipeline runs detached from the request's cancellation.
	procCtx := context.WithoutCancel(ctx)

	originalObjects := make([]string, len(files))
	for i, file := range files {
		objectName, err := s.storage.Upload(procCtx, file.Data, OriginalsFolder, file.ContentType, fileExt(file.Filename))
		if err != nil {
			logCtx.Error("Upload failed, aborting submission.", "filename", file.Filename, "error", err)
			return nil, fmt.Errorf("upload failed for %s: %w", file.Filename, err)
		}
		originalObjects[i] = objectName
	}

	templateDescription := baseDoc.Description
	if templateDescription == "" {
		templateDescription = baseDoc.Title
	}

	outcomes := make([]fileOutcome, len(files))
	eg, egCtx := errgroup.WithContext(procCtx)
	eg.SetLimit(s.config.MaxConcurrentFiles)

	for i := range files {
		idx := i
		file := files[i]
		eg.Go(func() error {
			outcomes[idx] = s.processFile(egCtx, file, templateDescription)
			return nil
		})
	}
	// Worker errors degrade per file rather than propagating, so Wait only
	// synchronizes.
	_ = eg.Wait()

	sub := s.buildRecord(user, baseDoc, notes, files, originalObjects, outcomes)
	if err := sub.ValidateAlignment(); err != nil {
		// Unreachable if every branch above filled its slot; treat as a
		// programming defect fatal to the request.
		logCtx.Error("Per-file array alignment violated.", "error", err)
		return nil, fmt.Errorf("submission record invariant violated: %w", err)
	}

	id, err := s.submissions.Create(procCtx, sub)
	if err != nil {
		logCtx.Error("Failed to persist submission.", "error", err)
		return nil, err
	}
	logCtx.Info("Submission created.", "submissionId", id, "label", sub.Label, "confidence", sub.Confidence)

	return s.summarize(sub, user, originalObjects), nil
}

// processFile scores and extracts one file, with the two external calls
// running concurrently. Failures degrade into the outcome instead of
// propagating.
func (s *SubmissionService) processFile(ctx context.Context, file FileUpload, templateDescription string) fileOutcome {
	var out fileOutcome

	done := make(chan struct{})
	go func() {
		defer close(done)
		mime := verifier.MIMEForFile(file.ContentType, file.Filename)
		out.result = s.scorer.Score(ctx, file.Data, mime, templateDescription)
	}()

	extraction, err := s.extractor.Extract(ctx, file.Data, file.ContentType)
	if err != nil {
		slog.Warn("Evidence extraction failed for file; continuing with empty payload.", "filename", file.Filename, "error", err)
		out.evidence = models.Evidence{Blocks: []models.Block{}, Words: []models.Word{}}
		out.processedURL = nil
	} else {
		out.evidence = extraction.Evidence
		url := extraction.ProcessedURL
		out.processedURL = &url
	}

	<-done
	return out
}

func (s *SubmissionService) buildRecord(user *models.User, baseDoc *models.BaseDocument, notes string, files []FileUpload, originalObjects []string, outcomes []fileOutcome) *models.Submission {
	n := len(files)
	sub := &models.Submission{
		UserID:               user.ID,
		BaseDocumentID:       baseDoc.ID,
		BaseDocumentTitle:    baseDoc.Title,
		BaseDocumentCategory: string(baseDoc.Category),
		Filenames:            make([]string, n),
		FileTypes:            make([]string, n),
		OriginalURLs:         make([]string, n),
		ProcessedURLs:        make([]*string, n),
		Evidence:             make([]models.Evidence, n),
		Results:              make([]models.VerifierResult, n),
		Notes:                notes,
		Status:               models.StatusNeedsReview,
		SubmittedAt:          time.Now().UTC(),
	}
	for i := range files {
		sub.Filenames[i] = files[i].Filename
		sub.FileTypes[i] = files[i].ContentType
		sub.OriginalURLs[i] = s.storage.PublicURL(originalObjects[i])
		sub.ProcessedURLs[i] = outcomes[i].processedURL
		sub.Evidence[i] = outcomes[i].evidence
		sub.Results[i] = outcomes[i].result
	}

	sub.Label, sub.Confidence, sub.Reason = AggregateResults(sub.Results)
	sub.SimilarityPercentage = sub.Confidence * 100
	return sub
}

// AggregateResults combines per-file verdicts into the submission-level
// outcome: the label is the conjunction of per-file labels (one failing file
// fails the batch), the confidence is the arithmetic mean, and the reasons
// are joined in file order.
func AggregateResults(results []models.VerifierResult) (label int, confidence float64, reason string) {
	if len(results) == 0 {
		return 0, 0.0, ""
	}
	label = 1
	var sum float64
	reasons := make([]string, 0, len(results))
	for _, r := range results {
		if r.Label != 1 {
			label = 0
		}
		sum += r.Confidence
		reasons = append(reasons, r.Reason)
	}
	return label, sum / float64(len(results)), strings.Join(reasons, "; ")
}

func (s *SubmissionService) summarize(sub *models.Submission, user *models.User, originalObjects []string) *models.SubmissionSummary {
	viewURLs := make([]string, len(originalObjects))
	for i, obj := range originalObjects {
		url, err := s.storage.SignedViewURL(obj, s.config.SignedURLTTL)
		if err != nil {
			slog.Warn("Failed to sign view URL; falling back to canonical URL.", "gcsObject", obj, "error", err)
			url = s.storage.PublicURL(obj)
		}
		viewURLs[i] = url
	}
	return &models.SubmissionSummary{
		ID:                   sub.ID,
		UserEmail:            user.Email,
		Filenames:            sub.Filenames,
		FileCount:            sub.FileCount(),
		OriginalViewURLs:     viewURLs,
		ProcessedURLs:        sub.ProcessedURLs,
		Status:               sub.Status,
		Label:                sub.Label,
		Confidence:           sub.Confidence,
		Reason:               sub.Reason,
		SimilarityPercentage: sub.SimilarityPercentage,
	}
}

func fileExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
