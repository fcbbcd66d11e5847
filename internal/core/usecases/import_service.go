package usecases

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/irrigo/fieldkit/internal/core/domain"
	"github.com/irrigo/fieldkit/internal/pkg/geospatial"
	"github.com/irrigo/fieldkit/internal/pkg/metrics"
)

// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported import format")

// ErrTooManyRows is returned when a file exceeds the configured row limit.
var ErrTooManyRows = errors.New("import exceeds row limit")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ImportService turns coordinate spreadsheets into boundary rings.
type ImportService struct {
	maxRows int
}

// NewImportService creates a new ImportService. maxRows <= 0 means 5000.
func NewImportService(maxRows int) *ImportService {
	if maxRows <= 0 {
		maxRows = 5000
	}
	return &ImportService{maxRows: maxRows}
}

// Parse reads coordinates from a .csv or .xlsx file. Rows that do not hold a
// valid coordinate are skipped. With sortPoints the ring is ordered around
// its centroid, which is what GPS walks exported out of order need.
func (s *ImportService) Parse(filename string, r io.Reader, sortPoints bool) (*domain.ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".txt":
		rows, err = s.readCSV(r)
	case ".xlsx":
		rows, err = s.readXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}

	raws := coordinateRows(rows)
	if len(raws) > s.maxRows {
		return nil, fmt.Errorf("%w: %d rows, limit %d", ErrTooManyRows, len(raws), s.maxRows)
	}

	points, skipped := geospatial.ValidateArrayReport(raws)
	metrics.ImportRows.WithLabelValues("accepted").Add(float64(len(points)))
	metrics.ImportRows.WithLabelValues("skipped").Add(float64(skipped))

	ring := domain.BoundaryRing(points)
	if sortPoints {
		ring = geospatial.SortAroundCentroid(ring)
	}
	metrics.AreaComputations.WithLabelValues("import").Inc()

	return &domain.ImportResult{
		Points:       ring,
		Rows:         len(raws),
		Skipped:      skipped,
		Sorted:       sortPoints,
		AreaHectares: geospatial.Area(ring),
	}, nil
}

func (s *ImportService) readCSV(r io.Reader) ([][]string, error) {
	br := bufio.NewReader(r)
	// Excel's "CSV UTF-8" export starts with a byte order mark
	if bom, _ := br.Peek(len(utf8BOM)); bytes.Equal(bom, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	head, _ := br.Peek(4096)

	cr := csv.NewReader(br)
	cr.Comma = sniffDelimiter(head)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if cr.Comma == ';' {
			for i := range rec {
				rec[i] = strings.ReplaceAll(rec[i], ",", ".")
			}
		}
		rows = append(rows, rec)
		// header row plus limit, so an oversized file fails without reading it all
		if len(rows) > s.maxRows+1 {
			return nil, fmt.Errorf("%w: limit %d", ErrTooManyRows, s.maxRows)
		}
	}
	return rows, nil
}

func (s *ImportService) readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("open xlsx: workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// sniffDelimiter picks the separator most frequent on the first line. ';' is
// what spreadsheet exports use in locales with a decimal comma.
func sniffDelimiter(head []byte) rune {
	line := head
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		line = head[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	if bytes.Count(line, []byte{'\t'}) > bytes.Count(line, []byte{','}) {
		return '\t'
	}
	return ','
}

// coordinateRows maps spreadsheet rows to raw coordinates. A first row naming
// lat/latitude and lng/lon/longitude columns selects them in any order;
// without a header the first two columns are latitude and longitude.
func coordinateRows(rows [][]string) []any {
	if len(rows) == 0 {
		return nil
	}

	latCol, lngCol := 0, 1
	start := 0
	if la, ln, ok := headerColumns(rows[0]); ok {
		latCol, lngCol = la, ln
		start = 1
	}

	raws := make([]any, 0, len(rows)-start)
	for _, row := range rows[start:] {
		if blank(row) {
			continue
		}
		raws = append(raws, map[string]string{
			"lat": cell(row, latCol),
			"lng": cell(row, lngCol),
		})
	}
	return raws
}

func headerColumns(row []string) (lat, lng int, ok bool) {
	lat, lng = -1, -1
	for i, name := range row {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "lat", "latitude":
			lat = i
		case "lng", "lon", "long", "longitude":
			lng = i
		}
	}
	return lat, lng, lat >= 0 && lng >= 0
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
