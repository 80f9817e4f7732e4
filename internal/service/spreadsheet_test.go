package service

import (
	"bytes"
	"testing"

	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		addr, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", addr, &row))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return &buf
}

func TestParseCandidateRows(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Name", "Exam Number"},
		{"Budi Santoso", "TS0001"},
		{"", "TS0002"},
		{"Siti Aminah", ""},
		{"  Rina Wati ", " TS0004 "},
	})

	got, err := ParseCandidateRows(buf)
	require.NoError(t, err)
	require.Equal(t, []model.CreateCandidateRequest{
		{Name: "Budi Santoso", ExamNumber: "TS0001"},
		{Name: "Rina Wati", ExamNumber: "TS0004"},
	}, got)
}

func TestParseCandidateRowsWithoutHeader(t *testing.T) {
	got, err := ParseCandidateRows(workbook(t, [][]any{{"Andi", "TS0100"}}))
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestParseCandidateRowsEmpty(t *testing.T) {
	_, err := ParseCandidateRows(workbook(t, [][]any{{"Name", "Exam Number"}}))
	require.ErrorIs(t, err, ErrEmptySheet)
}

func TestParseCandidateRowsNotSpreadsheet(t *testing.T) {
	_, err := ParseCandidateRows(bytes.NewBufferString("name,exam_number\n"))
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrEmptySheet)
}

func TestParseScoreRows(t *testing.T) {
	buf := workbook(t, [][]any{
		{"Name", "Exam Number", "Score"},
		{"Budi", "TS0001", 150},
		{"Siti", "TS0002", "n/a"},
		{"Andi", "TS0003", "172.0"},
		{"Rina", "", 90},
	})

	rows, invalid, err := ParseScoreRows(buf)
	require.NoError(t, err)
	require.Equal(t, []model.ScoreUploadRow{
		{Name: "Budi", ExamNumber: "TS0001", Score: 150},
		{Name: "Andi", ExamNumber: "TS0003", Score: 172},
	}, rows)
	require.Equal(t, []string{`row 3: score "n/a" is not a number`}, invalid)
}

func TestWriteSheetRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeSheet(&buf, "Candidates",
		[]any{"Name", "Exam Number"},
		[][]any{{"Budi", "TS0001"}, {"Siti", "TS0002"}},
	))

	got, err := ParseCandidateRows(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "TS0002", got[1].ExamNumber)
}
