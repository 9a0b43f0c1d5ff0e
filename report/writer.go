// Package report renders per-folder analysis results into durable report
// artifacts.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/signalsfoundry/mission-telemetry/analysis"
)

// ReportWriteError reports a failure to durably write a report artifact.
// The archival step must not run for a folder whose report failed.
type ReportWriteError struct {
	Path string
	Err  error
}

func (e *ReportWriteError) Error() string {
	return fmt.Sprintf("report write %s: %v", e.Path, e.Err)
}

func (e *ReportWriteError) Unwrap() error { return e.Err }

// Filename returns the deterministic report name for a device folder. The
// name doubles as the "already reported" marker: a folder whose report file
// exists is retried archive-only, never re-analysed.
func Filename(folder string) string {
	return "APLSTATS-REPORT-" + folder + ".log"
}

// Writer renders analysis results into a reports directory. Zero value is
// not usable; construct with NewWriter.
type Writer struct {
	dir        string
	exportXLSX bool
	exportPDF  bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithXLSX additionally emits a spreadsheet rendering of each report.
func WithXLSX() Option { return func(w *Writer) { w.exportXLSX = true } }

// WithPDF additionally emits a PDF rendering of each report.
func WithPDF() Option { return func(w *Writer) { w.exportPDF = true } }

// NewWriter creates the reports directory if needed and returns a Writer.
func NewWriter(dir string, opts ...Option) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report: create dir %q: %w", dir, err)
	}
	w := &Writer{dir: dir}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Exists reports whether the folder's report has already been written.
func (w *Writer) Exists(folder string) bool {
	_, err := os.Stat(filepath.Join(w.dir, Filename(folder)))
	return err == nil
}

// Write renders res and persists it atomically, returning the report path.
// The temp-file-then-rename discipline means a reader never observes a
// partial report, even across a crash mid-write.
func (w *Writer) Write(res *analysis.Result) (string, error) {
	path := filepath.Join(w.dir, Filename(res.Folder))
	if err := w.writeAtomic(path, []byte(Render(res))); err != nil {
		return "", err
	}

	if w.exportXLSX {
		data, err := BuildReportXLSX(res)
		if err != nil {
			return "", &ReportWriteError{Path: path, Err: err}
		}
		xlsxPath := filepath.Join(w.dir, "APLSTATS-REPORT-"+res.Folder+".xlsx")
		if err := w.writeAtomic(xlsxPath, data); err != nil {
			return "", err
		}
	}
	if w.exportPDF {
		data, err := BuildReportPDF(res)
		if err != nil {
			return "", &ReportWriteError{Path: path, Err: err}
		}
		pdfPath := filepath.Join(w.dir, "APLSTATS-REPORT-"+res.Folder+".pdf")
		if err := w.writeAtomic(pdfPath, data); err != nil {
			return "", err
		}
	}
	return path, nil
}

func (w *Writer) writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(w.dir, ".report-*")
	if err != nil {
		return &ReportWriteError{Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &ReportWriteError{Path: path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &ReportWriteError{Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &ReportWriteError{Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &ReportWriteError{Path: path, Err: err}
	}
	return nil
}

// Render produces the textual report: event counts, disconnection
// incidents, mission consolidation, and the percentage table.
func Render(res *analysis.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Telemetry analysis for device folder %s\n", res.Folder)
	fmt.Fprintf(&b, "Records analysed: %d\n", res.Records)
	if len(res.Warnings) > 0 {
		fmt.Fprintf(&b, "Units skipped: %d\n", len(res.Warnings))
		for _, warn := range res.Warnings {
			fmt.Fprintf(&b, "  - %s: %s\n", warn.File, warn.Reason)
		}
	}

	b.WriteString("\nEvent analysis\n")
	for _, status := range sortedKeys(res.EventCounts) {
		fmt.Fprintf(&b, "  %-12s %d\n", status, res.EventCounts[status])
	}

	b.WriteString("\nDisconnection incidents\n")
	if len(res.Incidents) == 0 {
		b.WriteString("  none\n")
	}
	for _, inc := range res.Incidents {
		device := inc.DeviceType
		if inc.DeviceID != "" {
			device += "/" + inc.DeviceID
		}
		if inc.Resolved {
			fmt.Fprintf(&b, "  %-28s down %s, recovered %s\n",
				device, inc.DownAt.Format("2006-01-02T15:04:05Z07:00"),
				inc.RecoveredAt.Format("2006-01-02T15:04:05Z07:00"))
		} else {
			fmt.Fprintf(&b, "  %-28s down %s, UNRESOLVED\n",
				device, inc.DownAt.Format("2006-01-02T15:04:05Z07:00"))
		}
	}
	fmt.Fprintf(&b, "  total incidents: %d\n", len(res.Incidents))

	b.WriteString("\nMission consolidation\n")
	for _, summary := range res.Missions {
		fmt.Fprintf(&b, "  %-14s %d records\n", summary.Mission, summary.Records)
		for _, status := range sortedKeys(summary.Statuses) {
			fmt.Fprintf(&b, "    %-12s %d\n", status, summary.Statuses[status])
		}
	}

	b.WriteString("\nStatus percentages\n")
	for _, status := range sortedKeysF(res.Percentages) {
		fmt.Fprintf(&b, "  %-12s %6.2f%%\n", status, res.Percentages[status])
	}

	return b.String()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysF(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
