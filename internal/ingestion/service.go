package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/rpattn/keyset/internal/domain"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}

	timeLayouts = []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04:05.000",
		"2006/01/02",
	}
)

// Column keys recognised in a header row. Headers are matched case-insensitively
// with spaces, dashes and underscores removed, so "Manager ID" and "manager_id"
// both name managerid. Unrecognised columns (such as an export's Cursor) are
// ignored.
const (
	colID         = "id"
	colTeam       = "team"
	colName       = "name"
	colDOB        = "dob"
	colRank       = "rank"
	colLevel      = "level"
	colHeight     = "height"
	colRating     = "rating"
	colSalary     = "salary"
	colActive     = "active"
	colManagerID  = "managerid"
	colExternalID = "externalid"
	colUpdatedAt  = "updatedat"
)

var requiredColumns = []string{colID, colName}

// Service reads people tables from CSV or XLSX files.
type Service struct {
	logger logrus.FieldLogger
}

// NewService creates a new ingestion service.
func NewService(logger logrus.FieldLogger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{logger: logger}
}

// Request describes the ingestion input.
type Request struct {
	FileName string
	Data     io.Reader
}

// RowError reports why one data row was rejected.
type RowError struct {
	RowNumber int    `json:"rowNumber"`
	Message   string `json:"message"`
}

// Summary returns ingestion level metrics.
type Summary struct {
	TotalRows   int        `json:"totalRows"`
	ValidRows   int        `json:"validRows"`
	InvalidRows int        `json:"invalidRows"`
	Ignored     []string   `json:"ignoredColumns"`
	Errors      []RowError `json:"errors"`
}

type tableData struct {
	headers []string
	rows    [][]string
	// lines holds the one-based file line of each row.
	lines []int
}

// Read parses the file and returns the valid people in file order. Invalid
// rows are skipped and reported in the summary. Duplicate ids are rejected
// after their first occurrence.
func (s *Service) Read(ctx context.Context, req Request) ([]domain.Person, Summary, error) {
	summary := Summary{Ignored: []string{}, Errors: []RowError{}}

	if req.Data == nil {
		return nil, summary, errors.New("data reader is required")
	}
	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return nil, summary, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(payload) == 0 {
		return nil, summary, errors.New("file is empty")
	}

	table, err := parseTable(req.FileName, payload)
	if err != nil {
		return nil, summary, err
	}

	index := make(map[string]int, len(table.headers))
	for i, h := range table.headers {
		if !knownColumn(h) {
			summary.Ignored = append(summary.Ignored, h)
			continue
		}
		if _, dup := index[h]; dup {
			return nil, summary, fmt.Errorf("column %q appears more than once", h)
		}
		index[h] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, summary, fmt.Errorf("required column %q is missing", col)
		}
	}

	summary.TotalRows = len(table.rows)
	people := make([]domain.Person, 0, len(table.rows))
	seen := make(map[int64]int, len(table.rows))
	for i, row := range table.rows {
		if err := ctx.Err(); err != nil {
			return nil, summary, err
		}
		rowNumber := table.lines[i]

		p, err := personFromRow(row, index)
		if err == nil {
			if first, dup := seen[p.ID]; dup {
				err = fmt.Errorf("id %d already used on row %d", p.ID, first)
			}
		}
		if err != nil {
			summary.InvalidRows++
			summary.Errors = append(summary.Errors, RowError{RowNumber: rowNumber, Message: err.Error()})
			s.logger.WithFields(logrus.Fields{
				"file": req.FileName,
				"row":  rowNumber,
			}).WithError(err).Warn("skipping invalid row")
			continue
		}
		seen[p.ID] = rowNumber
		people = append(people, p)
	}
	summary.ValidRows = len(people)

	s.logger.WithFields(logrus.Fields{
		"file":    req.FileName,
		"rows":    summary.TotalRows,
		"valid":   summary.ValidRows,
		"invalid": summary.InvalidRows,
	}).Info("read people table")
	return people, summary, nil
}

func knownColumn(name string) bool {
	switch name {
	case colID, colTeam, colName, colDOB, colRank, colLevel, colHeight, colRating,
		colSalary, colActive, colManagerID, colExternalID, colUpdatedAt:
		return true
	}
	return false
}

func personFromRow(row []string, index map[string]int) (domain.Person, error) {
	cell := func(col string) string {
		i, ok := index[col]
		if !ok {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var p domain.Person
	var err error
	if p.ID, err = parseInt[int64](cell(colID), 64); err != nil {
		return p, columnError(colID, err)
	}
	if p.Name = cell(colName); p.Name == "" {
		return p, columnError(colName, errors.New("value is required"))
	}
	if v := cell(colTeam); v != "" {
		if p.Team, err = parseInt[int64](v, 64); err != nil {
			return p, columnError(colTeam, err)
		}
	}
	if v := cell(colDOB); v != "" {
		if p.DOB, err = parseTimestamp(v); err != nil {
			return p, columnError(colDOB, err)
		}
	}
	if v := cell(colRank); v != "" {
		if p.Rank, err = parseInt[int16](v, 16); err != nil {
			return p, columnError(colRank, err)
		}
	}
	if v := cell(colLevel); v != "" {
		if p.Level, err = parseInt[int32](v, 32); err != nil {
			return p, columnError(colLevel, err)
		}
	}
	if v := cell(colHeight); v != "" {
		f, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return p, columnError(colHeight, err)
		}
		p.Height = float32(f)
	}
	if v := cell(colRating); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return p, columnError(colRating, err)
		}
		p.Rating = &f
	}
	if v := cell(colSalary); v != "" {
		if p.Salary, err = decimal.NewFromString(v); err != nil {
			return p, columnError(colSalary, err)
		}
	}
	if v := cell(colActive); v != "" {
		if p.Active, err = parseBool(v); err != nil {
			return p, columnError(colActive, err)
		}
	}
	if v := cell(colManagerID); v != "" {
		id, err := parseInt[int64](v, 64)
		if err != nil {
			return p, columnError(colManagerID, err)
		}
		p.ManagerID = &id
	}
	// external ids are unique in every store, so a missing one is generated
	p.ExternalID = uuid.New()
	if v := cell(colExternalID); v != "" {
		if p.ExternalID, err = uuid.Parse(v); err != nil {
			return p, columnError(colExternalID, err)
		}
	}
	if v := cell(colUpdatedAt); v != "" {
		ts, err := parseTimestamp(v)
		if err != nil {
			return p, columnError(colUpdatedAt, err)
		}
		p.UpdatedAt = &ts
	}
	return p, nil
}

func columnError(col string, err error) error {
	return fmt.Errorf("column %s: %w", col, err)
}

func parseInt[T int16 | int32 | int64](raw string, bits int) (T, error) {
	n, err := strconv.ParseInt(raw, 10, bits)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", raw)
	}
	return T(n), nil
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a boolean", raw)
}

// parseTimestamp also accepts spreadsheet date serials, which is how xlsx
// stores date cells.
func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		ts, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return ts.UTC(), nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format %q", raw)
}

func parseTable(fileName string, payload []byte) (tableData, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	default:
		return tableData{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) (tableData, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read csv: %w", err)
	}
	return normalizeTable(records)
}

func parseExcel(payload []byte) (tableData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return tableData{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return tableData{}, errors.New("excel file has no sheets")
	}

	// raw values keep dates and numbers in a parseable form
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return tableData{}, fmt.Errorf("failed to read rows from xlsx: %w", err)
	}
	return normalizeTable(rows)
}

// normalizeTable takes the first non-empty row as the header and pads data
// rows to the header width.
func normalizeTable(records [][]string) (tableData, error) {
	headerIndex := -1
	var dataRows [][]string
	var lines []int
	for idx, row := range records {
		if isEmptyRow(row) {
			continue
		}
		if headerIndex < 0 {
			headerIndex = idx
			continue
		}
		dataRows = append(dataRows, row)
		lines = append(lines, idx+1)
	}
	if headerIndex < 0 {
		return tableData{}, errors.New("no rows found in file")
	}

	headers := sanitizeHeaders(records[headerIndex])
	for i := range dataRows {
		dataRows[i] = padRow(dataRows[i], len(headers))
	}
	return tableData{headers: headers, rows: dataRows, lines: lines}, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func sanitizeHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	for idx, value := range raw {
		name := strings.ToLower(strings.TrimSpace(value))
		name = strings.NewReplacer(" ", "", "_", "", "-", "", ".", "").Replace(name)
		if name == "" {
			name = fmt.Sprintf("column%d", idx+1)
		}
		headers[idx] = name
	}
	return headers
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}
