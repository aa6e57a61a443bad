package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/your-username/appsync-flow-simulator/internal/models"
)

// Source supplies the records an export reads
type Source interface {
	History() []models.Operation
	Log() []models.LogEntry
}

// Exporter handles data export in various formats
type Exporter struct {
	source Source
	now    func() time.Time
}

// ExportFormat represents supported export formats
type ExportFormat string

const (
	FormatCSV   ExportFormat = "csv"
	FormatJSON  ExportFormat = "json"
	FormatExcel ExportFormat = "xlsx"
)

// Dataset names the listing being exported
type Dataset string

const (
	DatasetOperations Dataset = "operations"
	DatasetLog        Dataset = "log"
)

var (
	operationFields = []string{"id", "timestamp", "type", "name", "data_source", "resolver", "query"}
	logFields       = []string{"timestamp", "severity", "message"}
)

// ExportOptions defines export parameters
type ExportOptions struct {
	Format         ExportFormat `json:"format"`
	Dataset        Dataset      `json:"dataset"`
	Fields         []string     `json:"fields,omitempty"`
	Limit          int          `json:"limit"`
	IncludeHeaders bool         `json:"include_headers"`
}

// ExportResult contains export operation results
type ExportResult struct {
	Format      ExportFormat  `json:"format"`
	Dataset     Dataset       `json:"dataset"`
	RowCount    int           `json:"row_count"`
	Duration    time.Duration `json:"duration"`
	FileName    string        `json:"file_name"`
	ContentType string        `json:"content_type"`
}

// NewExporter creates a new exporter
func NewExporter(source Source) *Exporter {
	return &Exporter{
		source: source,
		now:    time.Now,
	}
}

// ParseFormat validates an export format name
func ParseFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(s)); f {
	case FormatCSV, FormatJSON, FormatExcel:
		return f, nil
	case "excel":
		return FormatExcel, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// ContentType returns the MIME type served for a format
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/json"
	}
}

// Plan validates options and fills defaults, returning the result metadata
// an export would produce without writing anything
func (e *Exporter) Plan(options *ExportOptions) (*ExportResult, error) {
	if options.Dataset == "" {
		options.Dataset = DatasetOperations
	}
	if options.Format == "" {
		options.Format = FormatJSON
	}
	if _, err := ParseFormat(string(options.Format)); err != nil {
		return nil, err
	}

	known := operationFields
	switch options.Dataset {
	case DatasetOperations:
	case DatasetLog:
		known = logFields
	default:
		return nil, fmt.Errorf("unsupported export dataset: %s", options.Dataset)
	}
	if len(options.Fields) == 0 {
		options.Fields = known
	}
	for _, field := range options.Fields {
		if !contains(known, field) {
			return nil, fmt.Errorf("unknown %s field: %s", options.Dataset, field)
		}
	}

	return &ExportResult{
		Format:      options.Format,
		Dataset:     options.Dataset,
		FileName:    fmt.Sprintf("%s_%s.%s", options.Dataset, e.now().Format("20060102_150405"), options.Format),
		ContentType: options.Format.ContentType(),
	}, nil
}

// Export exports data based on options
func (e *Exporter) Export(writer io.Writer, options ExportOptions) (*ExportResult, error) {
	start := e.now()
	result, err := e.Plan(&options)
	if err != nil {
		return nil, err
	}

	rows, records := e.fetch(options)
	result.RowCount = len(rows)

	switch options.Format {
	case FormatCSV:
		err = e.exportCSV(writer, rows, options)
	case FormatJSON:
		err = e.exportJSON(writer, options.Dataset, records, len(rows))
	case FormatExcel:
		err = e.exportExcel(writer, rows, options)
	}
	if err != nil {
		return nil, err
	}

	result.Duration = e.now().Sub(start)
	return result, nil
}

// fetch returns the newest Limit records as string rows in field order, plus
// the raw records for JSON output
func (e *Exporter) fetch(options ExportOptions) ([][]string, interface{}) {
	var rows [][]string

	if options.Dataset == DatasetLog {
		entries := tail(e.source.Log(), options.Limit)
		for _, entry := range entries {
			rows = append(rows, logRow(entry, options.Fields))
		}
		return rows, entries
	}

	ops := tail(e.source.History(), options.Limit)
	for _, op := range ops {
		rows = append(rows, operationRow(op, options.Fields))
	}
	return rows, ops
}

func tail[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[len(items)-limit:]
	}
	return items
}

func operationRow(op models.Operation, fields []string) []string {
	row := make([]string, 0, len(fields))
	for _, field := range fields {
		switch field {
		case "id":
			row = append(row, strconv.FormatInt(op.ID, 10))
		case "timestamp":
			row = append(row, op.Timestamp.Format(time.RFC3339))
		case "type":
			row = append(row, string(op.Kind))
		case "name":
			row = append(row, op.Name)
		case "data_source":
			row = append(row, string(op.DataSource))
		case "resolver":
			row = append(row, string(op.Resolver))
		case "query":
			row = append(row, op.Query)
		}
	}
	return row
}

func logRow(entry models.LogEntry, fields []string) []string {
	row := make([]string, 0, len(fields))
	for _, field := range fields {
		switch field {
		case "timestamp":
			row = append(row, entry.Timestamp.Format(time.RFC3339))
		case "severity":
			row = append(row, string(entry.Severity))
		case "message":
			row = append(row, entry.Message)
		}
	}
	return row
}

// exportCSV exports rows to CSV format
func (e *Exporter) exportCSV(writer io.Writer, rows [][]string, options ExportOptions) error {
	csvWriter := csv.NewWriter(writer)

	if options.IncludeHeaders {
		if err := csvWriter.Write(options.Fields); err != nil {
			return err
		}
	}
	if err := csvWriter.WriteAll(rows); err != nil {
		return err
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// exportJSON exports records to JSON format
func (e *Exporter) exportJSON(writer io.Writer, dataset Dataset, records interface{}, count int) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(map[string]interface{}{
		string(dataset): records,
		"count":         count,
		"exported":      e.now(),
	})
}

// exportExcel exports rows to a single-sheet workbook
func (e *Exporter) exportExcel(writer io.Writer, rows [][]string, options ExportOptions) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := strings.ToUpper(string(options.Dataset[:1])) + string(options.Dataset[1:])
	if err := file.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 12,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E0E0E0"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 2},
		},
	})
	if err != nil {
		return err
	}

	for col, header := range options.Fields {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return err
		}
		if err := file.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(options.Fields))
	if err != nil {
		return err
	}
	if err := file.SetColWidth(sheet, "A", lastCol, 20); err != nil {
		return err
	}

	for row, values := range rows {
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return err
			}
		}
	}

	if len(rows) > 0 {
		if err := file.AutoFilter(sheet, fmt.Sprintf("A1:%s%d", lastCol, len(rows)+1), nil); err != nil {
			return err
		}
	}

	return file.Write(writer)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
