package models

// Vertex is one corner of a bounding polygon, in pixel coordinates of the
// analyzed image.
type Vertex struct {
	X int `firestore:"x" json:"x"`
	Y int `firestore:"y" json:"y"`
}

// Block is a top-level text region detected on a page.
type Block struct {
	Vertices   []Vertex `firestore:"vertices" json:"vertices"`
	Confidence float64  `firestore:"confidence" json:"confidence"`
}

// Word is a single detected word with its bounding polygon.
type Word struct {
	Text       string   `firestore:"text" json:"text"`
	Vertices   []Vertex `firestore:"vertices" json:"vertices"`
	Confidence float64  `firestore:"confidence" json:"confidence"`
}

// Evidence holds the layout regions extracted from one file. It exists for
// rendering and audit only; the pass/fail decision never reads it.
type Evidence struct {
	Blocks []Block `firestore:"blocks" json:"blocks"`
	Words  []Word  `firestore:"words" json:"words"`
}

// Empty reports whether no regions were extracted, e.g. after a failed or
// skipped extraction.
func (e Evidence) Empty() bool {
	return len(e.Blocks) == 0 && len(e.Words) == 0
}
