package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/signalsfoundry/mission-telemetry/analysis"
)

// BuildReportXLSX renders an analysis result as a spreadsheet with a
// summary sheet and a per-mission breakdown sheet.
func BuildReportXLSX(res *analysis.Result) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	missionsSheet := "missions"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(missionsSheet)

	_ = f.SetCellValue(summarySheet, "A1", "Telemetry Analysis Report")
	_ = f.SetCellValue(summarySheet, "A3", "Device folder")
	_ = f.SetCellValue(summarySheet, "B3", res.Folder)
	_ = f.SetCellValue(summarySheet, "A4", "Records")
	_ = f.SetCellValue(summarySheet, "B4", res.Records)
	_ = f.SetCellValue(summarySheet, "A5", "Units skipped")
	_ = f.SetCellValue(summarySheet, "B5", len(res.Warnings))
	_ = f.SetCellValue(summarySheet, "A6", "Incidents")
	_ = f.SetCellValue(summarySheet, "B6", len(res.Incidents))

	_ = f.SetCellValue(summarySheet, "A8", "Status")
	_ = f.SetCellValue(summarySheet, "B8", "Count")
	_ = f.SetCellValue(summarySheet, "C8", "Percent")
	for i, status := range sortedKeys(res.EventCounts) {
		row := i + 9
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), status)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), res.EventCounts[status])
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("C%d", row), res.Percentages[status])
	}

	_ = f.SetCellValue(missionsSheet, "A1", "Mission")
	_ = f.SetCellValue(missionsSheet, "B1", "Records")
	for i, summary := range res.Missions {
		row := i + 2
		_ = f.SetCellValue(missionsSheet, fmt.Sprintf("A%d", row), summary.Mission)
		_ = f.SetCellValue(missionsSheet, fmt.Sprintf("B%d", row), summary.Records)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildReportPDF renders an analysis result as a minimal PDF.
func BuildReportPDF(res *analysis.Result) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Telemetry Analysis Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Device folder: %s", res.Folder))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Records analysed: %d", res.Records))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Units skipped: %d", len(res.Warnings)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Count", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Percent", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, status := range sortedKeys(res.EventCounts) {
		pdf.CellFormat(60, 6, status, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%d", res.EventCounts[status]), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.2f%%", res.Percentages[status]), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 6, "Device", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Down at", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Recovered at", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, inc := range res.Incidents {
		device := inc.DeviceType
		if inc.DeviceID != "" {
			device += "/" + inc.DeviceID
		}
		recovered := "UNRESOLVED"
		if inc.Resolved {
			recovered = inc.RecoveredAt.Format(time.RFC3339)
		}
		pdf.CellFormat(70, 6, device, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 6, inc.DownAt.Format(time.RFC3339), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, recovered, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
