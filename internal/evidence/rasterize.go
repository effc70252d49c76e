package evidence

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// RasterizeFirstPage returns an image representation of the first page of a
// PDF so it can be fed to the Vision API, which only accepts raster input.
// Scanned permits are single full-page images, so extracting the first
// embedded image of page one recovers the page content without a renderer.
func RasterizeFirstPage(pdfBytes []byte) ([]byte, error) {
	cfg := model.NewDefaultConfiguration()
	cfg.ValidationMode = model.ValidationRelaxed

	images, err := api.ExtractImagesRaw(bytes.NewReader(pdfBytes), []string{"1"}, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	for _, pageImages := range images {
		for _, img := range pageImages {
			data, err := io.ReadAll(img)
			if err != nil {
				return nil, fmt.Errorf("failed to read extracted page image: %w", err)
			}
			if len(data) > 0 {
				return data, nil
			}
		}
	}
	return nil, fmt.Errorf("PDF page 1 contains no rasterizable image")
}
