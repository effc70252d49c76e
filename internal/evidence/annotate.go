package evidence

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/palengkehub/vendorpermits/internal/models"
)

// Annotate draws the extracted regions over the original image and returns
// it re-encoded as JPEG. Blocks are outlined in red to show layout
// structure; words matching the keyword allow-list are outlined in green to
// visually justify the verdict for the reviewer.
func Annotate(imageBytes []byte, ev models.Evidence, keywords []string) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(imageBytes), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	dc := gg.NewContextForImage(img)

	// Words first so block outlines stay visible on top of dense text.
	dc.SetRGB255(0, 255, 0)
	dc.SetLineWidth(3)
	for _, word := range ev.Words {
		if !matchesKeyword(word.Text, keywords) {
			continue
		}
		strokePolygon(dc, word.Vertices)
	}

	dc.SetRGB255(255, 0, 0)
	dc.SetLineWidth(2)
	for _, block := range ev.Blocks {
		strokePolygon(dc, block.Vertices)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dc.Image(), imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode annotated image: %w", err)
	}
	return buf.Bytes(), nil
}

func strokePolygon(dc *gg.Context, vertices []models.Vertex) {
	if len(vertices) < 2 {
		return
	}
	dc.MoveTo(float64(vertices[0].X), float64(vertices[0].Y))
	for _, v := range vertices[1:] {
		dc.LineTo(float64(v.X), float64(v.Y))
	}
	dc.ClosePath()
	dc.Stroke()
}

func matchesKeyword(text string, keywords []string) bool {
	upper := strings.ToUpper(text)
	for _, k := range keywords {
		if strings.Contains(upper, k) {
			return true
		}
	}
	return false
}
