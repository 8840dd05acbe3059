package export

import (
	"encoding/json"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/ballpit/internal/dynamo"
)

// BodyRecord is one row of a snapshot CSV.
type BodyRecord struct {
	Index  int     `csv:"index"`
	X      float64 `csv:"x"`
	Y      float64 `csv:"y"`
	Radius float64 `csv:"radius"`
}

func WriteCSV(w io.Writer, bodies []dynamo.Body) error {
	records := make([]BodyRecord, len(bodies))
	for i, b := range bodies {
		records[i] = BodyRecord{Index: i, X: b.Position.X, Y: b.Position.Y, Radius: b.Radius}
	}
	return gocsv.Marshal(records, w)
}

type snapshotJSON struct {
	Arena  dynamo.Bounds `json:"arena"`
	Frame  int           `json:"frame"`
	Bodies []dynamo.Body `json:"bodies"`
}

func WriteJSON(w io.Writer, arena dynamo.Bounds, frame int, bodies []dynamo.Body) error {
	if bodies == nil {
		bodies = []dynamo.Body{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snapshotJSON{Arena: arena, Frame: frame, Bodies: bodies})
}
