package storage

import (
	"encoding/json"
	"io"
	"os"
)

type Equation struct {
	Rate string `json:"rate"`
	Expr string `json:"expr"`
}

// ExportData is the self-contained JSON form of a derivation.
type ExportData struct {
	Mechanism string             `json:"mechanism"`
	Notation  string             `json:"notation"`
	States    []string           `json:"states"`
	Equations []Equation         `json:"equations"`
	Outputs   []Equation         `json:"outputs,omitempty"`
	Routine   json.Marshaler     `json:"routine,omitempty"`
	Bindings  map[string]float64 `json:"bindings,omitempty"`
	Values    []float64          `json:"values,omitempty"`
}

func ExportJSON(path string, data *ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return ExportJSONTo(file, data)
}

func ExportJSONTo(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
