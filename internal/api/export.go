package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/your-username/appsync-flow-simulator/internal/export"
)

var errInvalidExport = errors.New("invalid export request")

// ExportData streams the operation history or activity log as CSV, JSON or
// an Excel workbook
func ExportData(exporter *export.Exporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		options := export.ExportOptions{
			Dataset:        export.Dataset(q.Get("dataset")),
			IncludeHeaders: q.Get("headers") != "false",
		}
		if raw := q.Get("format"); raw != "" {
			format, err := export.ParseFormat(raw)
			if err != nil {
				writeError(w, r, fmt.Errorf("%w: %v", errInvalidExport, err))
				return
			}
			options.Format = format
		}
		if raw := q.Get("fields"); raw != "" {
			options.Fields = strings.Split(raw, ",")
		}
		if raw := q.Get("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 0 {
				writeError(w, r, fmt.Errorf("%w: invalid limit %q", errInvalidExport, raw))
				return
			}
			options.Limit = limit
		}

		var buf bytes.Buffer
		result, err := exporter.Export(&buf, options)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: %v", errInvalidExport, err))
			return
		}

		w.Header().Set("Content-Type", result.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
		w.Header().Set("X-Row-Count", strconv.Itoa(result.RowCount))
		if _, err := w.Write(buf.Bytes()); err != nil {
			log.Debug().Err(err).Msg("Failed to write export")
		}
	}
}
