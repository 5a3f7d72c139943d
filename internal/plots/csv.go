package plots

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shamba-dev/shamba/internal/model"
)

// Header is the CSV header for plot directory files.
const Header = "id,name,acreage,crop_variety"

const (
	numFields  = 4
	colID      = 0
	colName    = 1
	colAcreage = 2
	colCrop    = 3
)

// ReadPlots reads a plot directory CSV. Empty ids are left for the store to assign.
func ReadPlots(r io.Reader) ([]model.Plot, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading plots CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	var plots []model.Plot
	for i, rec := range records[1:] {
		p, err := UnmarshalPlot(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		plots = append(plots, p)
	}
	return plots, nil
}

// WritePlots writes a plot directory CSV including the header.
func WritePlots(w io.Writer, plots []model.Plot) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, p := range plots {
		if err := cw.Write(MarshalPlot(p)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalPlot converts a Plot to a CSV row.
func MarshalPlot(p model.Plot) []string {
	row := make([]string, numFields)
	row[colID] = p.ID
	row[colName] = p.Name
	row[colAcreage] = p.Acreage.StringFixed(2)
	row[colCrop] = p.CropVariety
	return row
}

// UnmarshalPlot converts a CSV row to a Plot.
func UnmarshalPlot(record []string) (model.Plot, error) {
	if len(record) != numFields {
		return model.Plot{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	name := strings.TrimSpace(record[colName])
	if name == "" {
		return model.Plot{}, fmt.Errorf("plot name is empty")
	}

	var acreage decimal.Decimal
	if s := strings.TrimSpace(record[colAcreage]); s != "" {
		var err error
		acreage, err = decimal.NewFromString(s)
		if err != nil {
			return model.Plot{}, fmt.Errorf("parsing acreage %q: %w", s, err)
		}
	}

	return model.Plot{
		ID:          strings.TrimSpace(record[colID]),
		Name:        name,
		Acreage:     acreage,
		CropVariety: record[colCrop],
	}, nil
}
