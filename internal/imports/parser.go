// Package imports turns uploaded CSV and XLSX spreadsheets into lead rows.
// Header matching is lenient; rows that cannot become a lead are reported
// rather than failing the whole file.
package imports

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"leadcrm_backend/platform/apperr"
	"leadcrm_backend/platform/sanitize"
	"leadcrm_backend/platform/validator"

	"github.com/xuri/excelize/v2"
)

// MaxRows caps the data rows accepted from one file.
const MaxRows = 10000

var ErrUnsupportedFormat = errors.New("unsupported file type; use .csv or .xlsx")

// Record is one usable spreadsheet row. Row is the 1-based line in the file.
type Record struct {
	Row     int
	Name    string
	Email   string
	Phone   string
	Country string
	Product string
	Source  string
	Status  string
	Date    *time.Time
}

// Skipped is a row that was left out of the import.
type Skipped struct {
	Row    int
	Reason string
}

// Result is the outcome of parsing one file.
type Result struct {
	Records []Record
	Skipped []Skipped
}

// Parser reads spreadsheets using an alias table and a location for dates
// that carry no zone.
type Parser struct {
	aliases HeaderAliases
	loc     *time.Location
	val     *validator.Validator
}

func NewParser(aliases HeaderAliases, loc *time.Location) *Parser {
	if loc == nil {
		loc = time.Local
	}
	return &Parser{aliases: aliases, loc: loc, val: validator.New()}
}

// emailRule matches the rule applied to emails on manual lead creation.
const emailRule = "omitempty,email,max=254"

// IsSupported reports whether the file name has a parseable extension.
func IsSupported(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// Parse reads the file named fileName. The first non-empty row is the header.
func (p *Parser) Parse(fileName string, content []byte) (Result, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		rows, err = readCSV(content)
	case ".xlsx":
		rows, err = readXLSX(content)
	default:
		return Result{}, apperr.Validation(ErrUnsupportedFormat.Error())
	}
	if err != nil {
		return Result{}, apperr.Validation("could not read file").WithDetails(err.Error())
	}
	return p.fromRows(rows)
}

func (p *Parser) fromRows(rows [][]string) (Result, error) {
	headerAt := -1
	for i, row := range rows {
		if !isBlank(row) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return Result{}, apperr.Validation("file is empty")
	}

	columns := p.aliases.columns(rows[headerAt])
	var missing []string
	for _, field := range requiredFields {
		if _, ok := columns[field]; !ok {
			missing = append(missing, string(field))
		}
	}
	if len(missing) > 0 {
		return Result{}, apperr.Validation("missing required columns").WithDetails(missing)
	}

	data := rows[headerAt+1:]
	if len(data) > MaxRows {
		return Result{}, apperr.Validation(fmt.Sprintf("file has more than %d rows", MaxRows))
	}

	result := Result{Records: make([]Record, 0, len(data)), Skipped: make([]Skipped, 0)}
	for i, row := range data {
		if isBlank(row) {
			continue
		}
		line := headerAt + i + 2
		cell := func(f Field) string {
			idx, ok := columns[f]
			if !ok || idx >= len(row) {
				return ""
			}
			return sanitize.Line(row[idx])
		}

		rec := Record{
			Row:     line,
			Name:    cell(FieldName),
			Email:   strings.ToLower(cell(FieldEmail)),
			Phone:   cell(FieldPhone),
			Country: cell(FieldCountry),
			Product: cell(FieldProduct),
			Source:  cell(FieldSource),
			Status:  cell(FieldStatus),
		}
		if reason := missingReason(rec); reason != "" {
			result.Skipped = append(result.Skipped, Skipped{Row: line, Reason: reason})
			continue
		}
		if err := p.val.Var(rec.Email, emailRule); err != nil {
			result.Skipped = append(result.Skipped, Skipped{Row: line, Reason: "invalid email"})
			continue
		}
		if raw := cell(FieldDate); raw != "" {
			if t, ok := ParseDate(raw, p.loc); ok {
				rec.Date = &t
			}
		}
		result.Records = append(result.Records, rec)
	}
	return result, nil
}

func missingReason(rec Record) string {
	var missing []string
	if rec.Name == "" {
		missing = append(missing, "name")
	}
	if rec.Phone == "" {
		missing = append(missing, "phone")
	}
	if rec.Country == "" {
		missing = append(missing, "country")
	}
	if len(missing) == 0 {
		return ""
	}
	return "missing " + strings.Join(missing, ", ")
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func readCSV(content []byte) ([][]string, error) {
	content = bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = sniffDelimiter(content)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// sniffDelimiter picks ';' over ',' when the first line uses it more.
func sniffDelimiter(content []byte) rune {
	first := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		first = content[:i]
	}
	if bytes.Count(first, []byte(";")) > bytes.Count(first, []byte(",")) {
		return ';'
	}
	return ','
}

func readXLSX(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rs, err := f.Rows(sheets[0])
	if err != nil {
		return nil, err
	}
	defer func() { _ = rs.Close() }()

	var rows [][]string
	for rs.Next() {
		cols, err := rs.Columns()
		if err != nil {
			return nil, err
		}
		rows = append(rows, cols)
	}
	return rows, rs.Error()
}
