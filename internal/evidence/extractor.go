// Package evidence extracts layout regions (text blocks and words) from a
// submitted file via the Vision API and renders an annotated copy of the
// image for reviewer audit. The regions never feed the pass/fail decision.
package evidence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	vision "google.golang.org/api/vision/v1"

	"github.com/palengkehub/vendorpermits/internal/models"
)

// ProcessedFolder is the storage folder annotated renders are written to.
const ProcessedFolder = "processed_submissions"

// PositiveKeywords are the terms highlighted on the annotated render to show
// the reviewer why a document looks like a genuine permit.
var PositiveKeywords = []string{"DEPARTMENT", "TRADE", "INDUSTRY", "CERTIFICATE", "REGISTRATION", "BUSINESS", "NAME"}

// textDetector is the slice of the Vision client the extractor uses.
type textDetector interface {
	DetectDocumentText(ctx context.Context, imageBytes []byte) (*vision.TextAnnotation, error)
}

// renderUploader is the slice of the storage uploader the extractor uses.
type renderUploader interface {
	Upload(ctx context.Context, data []byte, folder, contentType, ext string) (string, error)
	PublicURL(objectName string) string
}

// Extraction is the successful result for one file: the flattened evidence
// payload plus the storage location of the annotated render.
type Extraction struct {
	Evidence     models.Evidence
	ProcessedObj string
	ProcessedURL string
}

// Extractor obtains structured layout evidence for one file at a time.
type Extractor struct {
	detector textDetector
	uploader renderUploader
	timeout  time.Duration
}

// NewExtractor creates an Extractor. A zero timeout defaults to 30s per
// vision call.
func NewExtractor(detector textDetector, uploader renderUploader, timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Extractor{detector: detector, uploader: uploader, timeout: timeout}
}

// Extract analyzes a file and persists an annotated render. PDF inputs are
// rasterized to their first page before analysis. Failures are returned to
// the caller, which records an empty payload for the file and continues with
// the rest of the batch.
func (e *Extractor) Extract(ctx context.Context, fileBytes []byte, contentType string) (*Extraction, error) {
	imageBytes := fileBytes
	if isPDF(contentType) {
		rasterized, err := RasterizeFirstPage(fileBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to rasterize PDF first page: %w", err)
		}
		imageBytes = rasterized
	}

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	annotation, err := e.detector.DetectDocumentText(callCtx, imageBytes)
	if err != nil {
		return nil, fmt.Errorf("document text detection failed: %w", err)
	}
	if annotation == nil {
		return nil, fmt.Errorf("no text detected in image")
	}

	ev := ParseAnnotation(annotation)
	slog.Info("Extracted bounding boxes.", "blocks", len(ev.Blocks), "words", len(ev.Words))

	rendered, err := Annotate(imageBytes, ev, PositiveKeywords)
	if err != nil {
		return nil, fmt.Errorf("failed to render annotated image: %w", err)
	}

	objectName, err := e.uploader.Upload(ctx, rendered, ProcessedFolder, "image/jpeg", ".jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to upload annotated render: %w", err)
	}

	return &Extraction{
		Evidence:     ev,
		ProcessedObj: objectName,
		ProcessedURL: e.uploader.PublicURL(objectName),
	}, nil
}

// ParseAnnotation flattens the Vision hierarchy into the two lists the
// record stores: block polygons for layout and words for keyword audit.
// Symbol-level granularity is discarded beyond assembling word text.
func ParseAnnotation(annotation *vision.TextAnnotation) models.Evidence {
	ev := models.Evidence{
		Blocks: []models.Block{},
		Words:  []models.Word{},
	}
	for _, page := range annotation.Pages {
		for _, block := range page.Blocks {
			if block.BoundingBox != nil {
				ev.Blocks = append(ev.Blocks, models.Block{
					Vertices:   convertVertices(block.BoundingBox.Vertices),
					Confidence: block.Confidence,
				})
			}
			for _, paragraph := range block.Paragraphs {
				for _, word := range paragraph.Words {
					if word.BoundingBox == nil {
						continue
					}
					var text strings.Builder
					for _, symbol := range word.Symbols {
						text.WriteString(symbol.Text)
					}
					ev.Words = append(ev.Words, models.Word{
						Text:       text.String(),
						Vertices:   convertVertices(word.BoundingBox.Vertices),
						Confidence: word.Confidence,
					})
				}
			}
		}
	}
	return ev
}

func convertVertices(vertices []*vision.Vertex) []models.Vertex {
	out := make([]models.Vertex, 0, len(vertices))
	for _, v := range vertices {
		if v == nil {
			continue
		}
		out = append(out, models.Vertex{X: int(v.X), Y: int(v.Y)})
	}
	return out
}

func isPDF(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "pdf")
}
