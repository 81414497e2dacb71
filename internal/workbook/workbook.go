// Package workbook reads and incrementally writes the contact spreadsheet:
// URL column detection, pending-row scanning, sentinel handling and
// save-after-every-row persistence.
package workbook

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/xuri/excelize/v2"
)

// Sentinel cell values marking terminal per-row states.
const (
	NotFound  = "Not found"
	ErrorMark = "Error"
	Duplicate = "Duplicate"
)

// Header names for the result columns, created when absent.
const (
	EmailHeader = "Email"
	PhoneHeader = "Phone number"
)

// Output modes.
const (
	ModeInPlace = "inplace"
	ModeDerived = "derived"
)

// Substrings that make a cell value look like a website URL.
var domainMarkers = []string{".com", ".lt", ".eu", ".org", ".net", "http", "www.", "//"}

// Rows whose URL cell carries one of these came from a pivot-table export
// header, not a website.
var headerTexts = []string{"Row Labels", "unique website link", "Count of date when found"}

// Candidate is one spreadsheet row waiting to be processed.
type Candidate struct {
	Row int // 1-based sheet row
	URL string
}

// Stats summarizes fill progress across the sheet.
type Stats struct {
	TotalRows   int
	EmailsFound int
	PhonesFound int
	Completion  float64
}

// Workbook wraps one open spreadsheet file. All row numbers are 1-based
// sheet rows; row 1 is the header.
type Workbook struct {
	file     *excelize.File
	path     string
	sheet    string
	mode     string
	urlCol   int // 1-based column indexes
	emailCol int
	phoneCol int
	backedUp bool
}

// Open loads the spreadsheet, detects the URL column and makes sure the
// Email and Phone number columns exist. mode decides where Save writes:
// ModeInPlace overwrites path (with a one-time backup), ModeDerived writes
// to a sibling "_output" file.
func Open(path, mode string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", path, err)
	}

	wb := &Workbook{
		file:  f,
		path:  path,
		sheet: f.GetSheetName(0),
		mode:  mode,
	}

	rows, err := f.GetRows(wb.sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read sheet %s: %w", wb.sheet, err)
	}
	if len(rows) == 0 {
		f.Close()
		return nil, errors.New("spreadsheet is empty")
	}

	wb.urlCol = detectURLColumn(rows)
	if wb.urlCol == 0 {
		f.Close()
		return nil, errors.New("could not find a URL column")
	}
	log.Info("detected URL column", "column", columnName(wb.urlCol))

	if err := wb.ensureContactColumns(rows[0]); err != nil {
		f.Close()
		return nil, err
	}

	return wb, nil
}

// Close releases the underlying file handle without saving.
func (wb *Workbook) Close() error {
	return wb.file.Close()
}

// Path returns the file the workbook was opened from.
func (wb *Workbook) Path() string {
	return wb.path
}

// OutputPath returns where Save writes.
func (wb *Workbook) OutputPath() string {
	if wb.mode == ModeDerived {
		return derivedPath(wb.path)
	}
	return wb.path
}

// detectURLColumn finds the first column whose first five non-empty data
// values look like websites, falling back to a column headed "Row Labels".
func detectURLColumn(rows [][]string) int {
	header := rows[0]
	width := len(header)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	for col := 1; col <= width; col++ {
		checked := 0
		for _, row := range rows[1:] {
			v := strings.TrimSpace(cellAt(row, col))
			if v == "" {
				continue
			}
			if looksLikeWebsite(v) {
				return col
			}
			checked++
			if checked >= 5 {
				break
			}
		}
	}

	for col := 1; col <= len(header); col++ {
		if strings.TrimSpace(header[col-1]) == "Row Labels" {
			return col
		}
	}
	return 0
}

// ensureContactColumns locates the Email / Phone number columns in the
// header row, appending them when missing.
func (wb *Workbook) ensureContactColumns(header []string) error {
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case EmailHeader:
			wb.emailCol = i + 1
		case PhoneHeader:
			wb.phoneCol = i + 1
		}
	}

	next := len(header) + 1
	if wb.emailCol == 0 {
		wb.emailCol = next
		next++
		if err := wb.setCell(wb.emailCol, 1, EmailHeader); err != nil {
			return err
		}
		log.Info("created missing column", "header", EmailHeader)
	}
	if wb.phoneCol == 0 {
		wb.phoneCol = next
		if err := wb.setCell(wb.phoneCol, 1, PhoneHeader); err != nil {
			return err
		}
		log.Info("created missing column", "header", PhoneHeader)
	}
	return nil
}

// Pending scans rows in sheet order and collects up to n rows whose Email
// or Phone cell is still empty or a sentinel and whose URL cell holds a
// website. Pivot-export header rows are skipped, never deleted.
func (wb *Workbook) Pending(n int) ([]Candidate, error) {
	rows, err := wb.file.GetRows(wb.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", wb.sheet, err)
	}

	var out []Candidate
	for i, row := range rows[1:] {
		if len(out) >= n {
			break
		}
		rawURL := strings.TrimSpace(cellAt(row, wb.urlCol))
		if rawURL == "" || isHeaderText(rawURL) || !looksLikeWebsite(rawURL) {
			continue
		}
		email := strings.TrimSpace(cellAt(row, wb.emailCol))
		phone := strings.TrimSpace(cellAt(row, wb.phoneCol))
		if needsValue(email) || needsValue(phone) {
			out = append(out, Candidate{Row: i + 2, URL: rawURL})
		}
	}
	return out, nil
}

// SetResult writes the email and phone cells for one row. A phone value
// starting with "+" gets a leading apostrophe so the spreadsheet keeps it
// as text instead of autoconverting it into a formula.
func (wb *Workbook) SetResult(row int, email, phone string) error {
	if strings.HasPrefix(phone, "+") && !isSentinel(phone) {
		phone = "'" + phone
	}
	if err := wb.setCell(wb.emailCol, row, email); err != nil {
		return err
	}
	return wb.setCell(wb.phoneCol, row, phone)
}

// Email returns the email cell of a row.
func (wb *Workbook) Email(row int) (string, error) {
	return wb.getCell(wb.emailCol, row)
}

// Phone returns the phone cell of a row with the apostrophe escape
// stripped back off.
func (wb *Workbook) Phone(row int) (string, error) {
	v, err := wb.getCell(wb.phoneCol, row)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(v, "'"), nil
}

// URL returns the URL cell of a row.
func (wb *Workbook) URL(row int) (string, error) {
	return wb.getCell(wb.urlCol, row)
}

// Save persists the workbook. In in-place mode the source file is
// overwritten, with a one-time backup copy made before the first write; in
// derived mode the source is never touched.
func (wb *Workbook) Save() error {
	if wb.mode == ModeDerived {
		return wb.file.SaveAs(derivedPath(wb.path))
	}

	if !wb.backedUp {
		if err := copyFile(wb.path, backupPath(wb.path)); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
		wb.backedUp = true
		log.Info("created backup file", "path", backupPath(wb.path))
	}
	return wb.file.Save()
}

// Stats counts how many website rows already carry a real email or phone.
func (wb *Workbook) Stats() (Stats, error) {
	rows, err := wb.file.GetRows(wb.sheet)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to read sheet %s: %w", wb.sheet, err)
	}

	var s Stats
	filled := 0
	for i, row := range rows {
		if i == 0 {
			continue
		}
		rawURL := strings.TrimSpace(cellAt(row, wb.urlCol))
		if rawURL == "" || isHeaderText(rawURL) || !looksLikeWebsite(rawURL) {
			continue
		}
		s.TotalRows++
		email := strings.TrimSpace(cellAt(row, wb.emailCol))
		phone := strings.TrimSpace(cellAt(row, wb.phoneCol))
		hasEmail := email != "" && !isSentinel(email)
		hasPhone := phone != "" && !isSentinel(phone)
		if hasEmail {
			s.EmailsFound++
		}
		if hasPhone {
			s.PhonesFound++
		}
		if hasEmail || hasPhone {
			filled++
		}
	}
	if s.TotalRows > 0 {
		s.Completion = float64(filled) / float64(s.TotalRows) * 100
	}
	return s, nil
}

func (wb *Workbook) setCell(col, row int, value string) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return wb.file.SetCellValue(wb.sheet, cell, value)
}

func (wb *Workbook) getCell(col, row int) (string, error) {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", err
	}
	return wb.file.GetCellValue(wb.sheet, cell)
}

// cellAt reads a 1-based column from a GetRows row, treating columns past
// the trimmed slice end as empty.
func cellAt(row []string, col int) string {
	if col < 1 || col > len(row) {
		return ""
	}
	return row[col-1]
}

func looksLikeWebsite(v string) bool {
	lower := strings.ToLower(v)
	for _, marker := range domainMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isHeaderText(v string) bool {
	for _, h := range headerTexts {
		if v == h {
			return true
		}
	}
	return false
}

func isSentinel(v string) bool {
	return v == NotFound || v == ErrorMark || v == Duplicate
}

// needsValue reports whether a result cell still needs processing.
func needsValue(v string) bool {
	return v == "" || isSentinel(v)
}

func columnName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return fmt.Sprintf("#%d", col)
	}
	return name
}

func derivedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_output" + ext
}

func backupPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "_backup" + ext
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
