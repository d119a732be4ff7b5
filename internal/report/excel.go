package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"propveris/internal/domain"
	"propveris/internal/port"
)

// Service produces XLSX workbooks summarizing verification history.
type Service struct {
	repo port.VerificationRepository
}

// NewService creates a report Service.
func NewService(repo port.VerificationRepository) *Service {
	return &Service{repo: repo}
}

// maxExportRows caps a single export; exports page through the
// repository in chunks of this size at most.
const maxExportRows = 10000

// ExportVerificationsXLSX returns an XLSX workbook of up to
// maxExportRows most recent verifications.
func (s *Service) ExportVerificationsXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	items, _, err := s.repo.List(ctx, 0, maxExportRows)
	if err != nil {
		return nil, fmt.Errorf("listing verifications: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Verifications"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// Drop the default sheet excelize creates.
	if index, _ := f.GetSheetIndex("Sheet1"); index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Submitted",
		"Document Type",
		"File Name",
		"Status",
		"Failure Reason",
		"Benefits",
		"Risks",
		"Fields",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, v := range items {
		write := func(col int, val any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, val)
		}

		write(1, v.CreatedAt.Format("2006-01-02 15:04"))
		write(2, string(v.DocumentType))
		write(3, v.FileName)
		write(4, string(v.Status))
		write(5, string(v.FailureReason))

		benefits, risks := summarizeVerdict(v.Verdict)
		write(6, truncate(benefits, 200))
		write(7, truncate(risks, 200))
		write(8, truncate(summarizeFields(v.Fields), 300))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 18)
	_ = f.SetColWidth(sheet, "B", "B", 16)
	_ = f.SetColWidth(sheet, "C", "C", 30)
	_ = f.SetColWidth(sheet, "D", "E", 18)
	_ = f.SetColWidth(sheet, "F", "G", 50)
	_ = f.SetColWidth(sheet, "H", "H", 60)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	log.Printf("report.Service: exported %d verification(s) in %s", len(items), time.Since(start))
	return buf.Bytes(), nil
}

// summarizeVerdict flattens a stored verdict into semicolon-joined
// benefit and risk labels.
func summarizeVerdict(raw json.RawMessage) (benefits, risks string) {
	if len(raw) == 0 {
		return "", ""
	}
	var verdict struct {
		Benefits []domain.VerdictItem `json:"benefits"`
		Risks    []domain.VerdictItem `json:"risks"`
	}
	if err := json.Unmarshal(raw, &verdict); err != nil {
		return "", ""
	}
	return joinLabels(verdict.Benefits), joinLabels(verdict.Risks)
}

func joinLabels(items []domain.VerdictItem) string {
	labels := make([]string, 0, len(items))
	for _, item := range items {
		labels = append(labels, item.Label)
	}
	return strings.Join(labels, "; ")
}

// summarizeFields renders stored fields as "name=value" pairs in
// field-name order.
func summarizeFields(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return ""
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, name+"="+fields[name])
	}
	return strings.Join(pairs, "; ")
}

// truncate cuts s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	if n <= 1 {
		return string(runes[:n])
	}
	return string(runes[:n-1]) + "…"
}
