// Package report renders experiment reports for humans and machines.
package report

import (
	"io"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	"github.com/ZanzyTHEbar/vfogsim/internal/experiment"
)

// WriteJSON encodes the report as indented JSON with map keys sorted.
func WriteJSON(w io.Writer, r *experiment.Report) error {
	return json.MarshalWrite(w, r, json.Deterministic(true), jsontext.WithIndent("  "))
}

// ReadJSON decodes a report written by WriteJSON.
func ReadJSON(rd io.Reader) (*experiment.Report, error) {
	var r experiment.Report
	if err := json.UnmarshalRead(rd, &r); err != nil {
		return nil, err
	}
	return &r, nil
}
