package service

import (
	"fmt"
	"io"
	"strings"

	"github.com/signintech/gopdf"
	"github.com/stemsi/speaking-backend/internal/model"
)

const reportFont = "report"

// renderScoreReport draws a one-page A4 score report. fontPath must point at
// a TrueType font that covers the candidate's name.
func renderScoreReport(w io.Writer, fontPath string, r *model.ScoreReport) error {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := pdf.AddTTFFont(reportFont, fontPath); err != nil {
		return fmt.Errorf("load font %s: %w", fontPath, err)
	}

	text := func(size int, x, y float64, s string) error {
		if err := pdf.SetFont(reportFont, "", size); err != nil {
			return err
		}
		pdf.SetXY(x, y)
		return pdf.Cell(nil, s)
	}

	const left = 60.0
	pdf.SetTextColor(20, 40, 90)
	if err := text(22, left, 60, "TOEIC Speaking Mock Test"); err != nil {
		return err
	}
	if err := text(14, left, 92, "Score Report"); err != nil {
		return err
	}
	pdf.SetLineWidth(1)
	pdf.Line(left, 118, 535, 118)

	pdf.SetTextColor(0, 0, 0)
	rows := []struct{ label, value string }{
		{"Name", r.CandidateName},
		{"Exam number", r.CandidateNumber},
		{"Test date", r.TestDate},
	}
	y := 140.0
	for _, row := range rows {
		if err := text(12, left, y, row.label); err != nil {
			return err
		}
		if err := text(12, left+120, y, row.value); err != nil {
			return err
		}
		y += 24
	}

	if err := text(12, left, y+20, "Score"); err != nil {
		return err
	}
	if err := text(36, left, y+40, fmt.Sprintf("%d / %d", r.Score, model.MaxScore)); err != nil {
		return err
	}
	if err := text(12, left+260, y+20, "CEFR level"); err != nil {
		return err
	}
	if err := text(36, left+260, y+40, strings.ReplaceAll(string(r.CEFRLevel), "_", " ")); err != nil {
		return err
	}

	pdf.Line(left, y+100, 535, y+100)
	if err := text(11, left, y+116, r.CEFRDescription); err != nil {
		return err
	}

	return pdf.Write(w)
}
