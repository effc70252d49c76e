package gcp

import (
	"context"
	"encoding/base64"
	"fmt"

	vision "google.golang.org/api/vision/v1"
)

// VisionClient wraps the Cloud Vision API for document text detection.
type VisionClient struct {
	service *vision.Service
}

// NewVisionClient creates a new Vision API client using ambient credentials.
func NewVisionClient(ctx context.Context) (*VisionClient, error) {
	service, err := vision.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vision service: %w", err)
	}
	return &VisionClient{service: service}, nil
}

// DetectDocumentText runs DOCUMENT_TEXT_DETECTION on raw image bytes and
// returns the hierarchical annotation (pages, blocks, paragraphs, words,
// symbols). A nil annotation with nil error means no text was detected.
func (c *VisionClient) DetectDocumentText(ctx context.Context, imageBytes []byte) (*vision.TextAnnotation, error) {
	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{
			{
				Image: &vision.Image{
					Content: base64.StdEncoding.EncodeToString(imageBytes),
				},
				Features: []*vision.Feature{
					{Type: "DOCUMENT_TEXT_DETECTION", MaxResults: 1},
				},
			},
		},
	}

	resp, err := c.service.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("vision annotate call failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return nil, fmt.Errorf("vision returned no responses")
	}
	annotation := resp.Responses[0]
	if annotation.Error != nil {
		return nil, fmt.Errorf("vision API error: %s", annotation.Error.Message)
	}
	return annotation.FullTextAnnotation, nil
}
