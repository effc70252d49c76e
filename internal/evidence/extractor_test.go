package evidence

import (
	"bytes"
	"context"
	"errors"
	"image"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	vision "google.golang.org/api/vision/v1"

	"github.com/palengkehub/vendorpermits/internal/models"
)

func sampleAnnotation() *vision.TextAnnotation {
	word := func(text string, x, y int64) *vision.Word {
		symbols := make([]*vision.Symbol, 0, len(text))
		for _, r := range text {
			symbols = append(symbols, &vision.Symbol{Text: string(r)})
		}
		return &vision.Word{
			BoundingBox: &vision.BoundingPoly{Vertices: []*vision.Vertex{
				{X: x, Y: y}, {X: x + 40, Y: y}, {X: x + 40, Y: y + 10}, {X: x, Y: y + 10},
			}},
			Confidence: 0.98,
			Symbols:    symbols,
		}
	}
	return &vision.TextAnnotation{
		Pages: []*vision.Page{
			{
				Blocks: []*vision.Block{
					{
						BoundingBox: &vision.BoundingPoly{Vertices: []*vision.Vertex{
							{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 50}, {X: 0, Y: 50},
						}},
						Confidence: 0.91,
						Paragraphs: []*vision.Paragraph{
							{Words: []*vision.Word{word("BUSINESS", 5, 5), word("PERMIT", 50, 5)}},
						},
					},
					{
						BoundingBox: &vision.BoundingPoly{Vertices: []*vision.Vertex{
							{X: 0, Y: 60}, {X: 100, Y: 60}, {X: 100, Y: 90}, {X: 0, Y: 90},
						}},
						Confidence: 0.85,
						Paragraphs: []*vision.Paragraph{
							{Words: []*vision.Word{word("hello", 5, 65)}},
						},
					},
				},
			},
		},
	}
}

func TestParseAnnotationFlattensHierarchy(t *testing.T) {
	ev := ParseAnnotation(sampleAnnotation())

	require.Len(t, ev.Blocks, 2)
	assert.InDelta(t, 0.91, ev.Blocks[0].Confidence, 1e-9)
	assert.Len(t, ev.Blocks[0].Vertices, 4)

	require.Len(t, ev.Words, 3)
	assert.Equal(t, "BUSINESS", ev.Words[0].Text)
	assert.Equal(t, "PERMIT", ev.Words[1].Text)
	assert.Equal(t, "hello", ev.Words[2].Text)
	assert.Equal(t, models.Vertex{X: 5, Y: 5}, ev.Words[0].Vertices[0])
}

func TestParseAnnotationEmptyPages(t *testing.T) {
	ev := ParseAnnotation(&vision.TextAnnotation{})
	assert.True(t, ev.Empty())
	// The slices must exist so the persisted payload has empty arrays, not
	// nulls.
	assert.NotNil(t, ev.Blocks)
	assert.NotNil(t, ev.Words)
}

func testImageBytes(t *testing.T) []byte {
	t.Helper()
	img := imaging.New(200, 100, image.White.C)
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestAnnotateProducesJPEG(t *testing.T) {
	ev := models.Evidence{
		Blocks: []models.Block{
			{Vertices: []models.Vertex{{X: 10, Y: 10}, {X: 90, Y: 10}, {X: 90, Y: 40}, {X: 10, Y: 40}}, Confidence: 0.9},
		},
		Words: []models.Word{
			{Text: "CERTIFICATE", Vertices: []models.Vertex{{X: 12, Y: 12}, {X: 60, Y: 12}, {X: 60, Y: 20}, {X: 12, Y: 20}}, Confidence: 0.95},
			{Text: "lorem", Vertices: []models.Vertex{{X: 12, Y: 25}, {X: 40, Y: 25}, {X: 40, Y: 32}, {X: 12, Y: 32}}, Confidence: 0.95},
		},
	}

	rendered, err := Annotate(testImageBytes(t), ev, PositiveKeywords)
	require.NoError(t, err)
	require.NotEmpty(t, rendered)

	img, format, err := image.Decode(bytes.NewReader(rendered))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 100, img.Bounds().Dy())
}

func TestAnnotateRejectsGarbage(t *testing.T) {
	_, err := Annotate([]byte("not an image"), models.Evidence{}, PositiveKeywords)
	assert.Error(t, err)
}

type fakeDetector struct {
	annotation *vision.TextAnnotation
	err        error
}

func (f *fakeDetector) DetectDocumentText(_ context.Context, _ []byte) (*vision.TextAnnotation, error) {
	return f.annotation, f.err
}

type fakeUploader struct {
	uploads int
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, _ []byte, folder, _, ext string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads++
	return folder + "/render-1" + ext, nil
}

func (f *fakeUploader) PublicURL(objectName string) string {
	return "https://storage.test/" + objectName
}

func TestExtractHappyPath(t *testing.T) {
	uploader := &fakeUploader{}
	ex := NewExtractor(&fakeDetector{annotation: sampleAnnotation()}, uploader, 0)

	result, err := ex.Extract(context.Background(), testImageBytes(t), "image/png")
	require.NoError(t, err)

	assert.Len(t, result.Evidence.Blocks, 2)
	assert.Len(t, result.Evidence.Words, 3)
	assert.Equal(t, "processed_submissions/render-1.jpg", result.ProcessedObj)
	assert.Equal(t, "https://storage.test/processed_submissions/render-1.jpg", result.ProcessedURL)
	assert.Equal(t, 1, uploader.uploads)
}

func TestExtractDetectorFailure(t *testing.T) {
	ex := NewExtractor(&fakeDetector{err: errors.New("quota exceeded")}, &fakeUploader{}, 0)
	_, err := ex.Extract(context.Background(), testImageBytes(t), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestExtractNoTextDetected(t *testing.T) {
	ex := NewExtractor(&fakeDetector{annotation: nil}, &fakeUploader{}, 0)
	_, err := ex.Extract(context.Background(), testImageBytes(t), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text detected")
}

func TestExtractUploadFailure(t *testing.T) {
	ex := NewExtractor(&fakeDetector{annotation: sampleAnnotation()}, &fakeUploader{err: errors.New("bucket gone")}, 0)
	_, err := ex.Extract(context.Background(), testImageBytes(t), "image/png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket gone")
}

func TestExtractRejectsBrokenPDF(t *testing.T) {
	ex := NewExtractor(&fakeDetector{annotation: sampleAnnotation()}, &fakeUploader{}, 0)
	_, err := ex.Extract(context.Background(), []byte("%PDF-garbage"), "application/pdf")
	assert.Error(t, err)
}
