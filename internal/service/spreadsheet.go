package service

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/xuri/excelize/v2"
)

var ErrEmptySheet = errors.New("spreadsheet has no usable rows")

// firstSheetRows returns the rows of the first worksheet of an xlsx file.
func firstSheetRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrEmptySheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// isHeaderRow reports whether the first cell labels the name column.
func isHeaderRow(row []string) bool {
	first := strings.ToLower(cell(row, 0))
	return first == "a" || strings.Contains(first, "name") || strings.Contains(first, "이름")
}

// ParseCandidateRows reads column A (name) and column B (exam number).
// A leading header row is skipped and incomplete rows are ignored.
func ParseCandidateRows(r io.Reader) ([]model.CreateCandidateRequest, error) {
	rows, err := firstSheetRows(r)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 && isHeaderRow(rows[0]) {
		rows = rows[1:]
	}

	var out []model.CreateCandidateRequest
	for _, row := range rows {
		name, number := cell(row, 0), cell(row, 1)
		if name == "" || number == "" {
			continue
		}
		out = append(out, model.CreateCandidateRequest{Name: name, ExamNumber: number})
	}
	if len(out) == 0 {
		return nil, ErrEmptySheet
	}
	return out, nil
}

// ParseScoreRows reads column A (name), B (exam number) and C (score).
// Rows whose score is not a number are reported in the returned error list.
func ParseScoreRows(r io.Reader) ([]model.ScoreUploadRow, []string, error) {
	rows, err := firstSheetRows(r)
	if err != nil {
		return nil, nil, err
	}
	first := 1
	if len(rows) > 0 && isHeaderRow(rows[0]) {
		rows = rows[1:]
		first = 2
	}

	var (
		out     []model.ScoreUploadRow
		invalid []string
	)
	for i, row := range rows {
		name, number, raw := cell(row, 0), cell(row, 1), cell(row, 2)
		if number == "" || raw == "" {
			continue
		}
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			invalid = append(invalid, fmt.Sprintf("row %d: score %q is not a number", first+i, raw))
			continue
		}
		out = append(out, model.ScoreUploadRow{Name: name, ExamNumber: number, Score: int(score)})
	}
	if len(out) == 0 && len(invalid) == 0 {
		return nil, nil, ErrEmptySheet
	}
	return out, invalid, nil
}

// writeSheet writes a single-sheet workbook with a header row.
func writeSheet(w io.Writer, sheet string, header []any, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, addr, &row); err != nil {
			return err
		}
	}
	_, err := f.WriteTo(w)
	return err
}
