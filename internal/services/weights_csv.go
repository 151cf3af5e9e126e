package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	ResponseIDColumn = "ResponseId"
	WeightColumn     = "Weighting"
)

// ReadRespondentWeights parses a CSV with ResponseId and Weighting columns in
// any order. Extra columns are ignored; a blank weight cell is left nil.
func ReadRespondentWeights(r io.Reader) ([]RespondentWeight, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("weights file is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	idCol, weightCol := -1, -1
	for i, h := range header {
		switch {
		case strings.EqualFold(strings.TrimSpace(h), ResponseIDColumn):
			idCol = i
		case strings.EqualFold(strings.TrimSpace(h), WeightColumn):
			weightCol = i
		}
	}
	if idCol < 0 || weightCol < 0 {
		return nil, fmt.Errorf("weights file needs columns named %s and %s", ResponseIDColumn, WeightColumn)
	}

	var out []RespondentWeight
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if idCol >= len(rec) || strings.TrimSpace(rec[idCol]) == "" {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(rec[idCol]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid %s %q", line, ResponseIDColumn, rec[idCol])
		}
		row := RespondentWeight{RespondentID: id}
		if weightCol < len(rec) {
			if cell := strings.TrimSpace(rec[weightCol]); cell != "" {
				w, err := decimal.NewFromString(cell)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid %s %q", line, WeightColumn, cell)
				}
				row.Weight = &w
			}
		}
		out = append(out, row)
	}
	return out, nil
}
