package readers

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

// SheetFileReader flattens tabular files into text: one line per row, cells
// joined by spaces.
type SheetFileReader struct{}

func (r *SheetFileReader) CanRead(path string) bool {
	switch TypeOf(path) {
	case "csv", "xls", "xlsx":
		return true
	}
	return false
}

func (r *SheetFileReader) ReadText(path string) (string, error) {
	if TypeOf(path) == "csv" {
		return readCSV(path)
	}
	return readWorkbook(path)
}

func readCSV(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows are data, not errors

	records, err := reader.ReadAll()
	if err != nil {
		return "", fmt.Errorf("failed to parse csv: %w", err)
	}

	lines := make([]string, 0, len(records))
	for _, rec := range records {
		lines = append(lines, strings.Join(rec, " "))
	}

	return strings.Join(lines, "\n"), nil
}

func readWorkbook(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var lines []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("failed to read sheet %s: %w", sheet, err)
		}
		for _, row := range rows {
			lines = append(lines, strings.Join(row, " "))
		}
	}

	return strings.Join(lines, "\n"), nil
}
