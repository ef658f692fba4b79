package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVParser parses translation units from CSV format.
type CSVParser struct{}

// Parse reads CSV from the reader and returns parsed units.
// Expected columns: key, source_text, notes
func (p *CSVParser) Parse(r io.Reader) ([]RawUnit, error) {
	reader := csv.NewReader(r)

	colIndex, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	return p.readRecords(reader, colIndex)
}

// readHeader reads and validates the CSV header row.
func (p *CSVParser) readHeader(reader *csv.Reader) (map[string]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	colIndex := make(map[string]int)
	for i, col := range header {
		colIndex[col] = i
	}

	requiredCols := []string{"key", "source_text"}
	for _, col := range requiredCols {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing required column: %s", col)
		}
	}

	return colIndex, nil
}

// readRecords reads all data rows and converts them to RawUnits.
func (p *CSVParser) readRecords(reader *csv.Reader, colIndex map[string]int) ([]RawUnit, error) {
	var units []RawUnit
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		unit := RawUnit{
			Key:        getColumn(record, colIndex, "key"),
			SourceText: getColumn(record, colIndex, "source_text"),
			Notes:      getColumn(record, colIndex, "notes"),
			LineNum:    lineNum,
		}
		if unit.Key == "" {
			return nil, fmt.Errorf("line %d: empty key", lineNum)
		}
		units = append(units, unit)
	}

	return units, nil
}

// getColumn safely retrieves a column value from a record.
func getColumn(record []string, colIndex map[string]int, col string) string {
	if idx, ok := colIndex[col]; ok && idx < len(record) {
		return record[idx]
	}
	return ""
}
