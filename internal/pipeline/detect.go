package pipeline

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"aging/internal"
	"aging/internal/util"
)

type SourceFormat string

const (
	FormatXLSX    SourceFormat = "xlsx"
	FormatCSV     SourceFormat = "csv"
	FormatHTML    SourceFormat = "html"
	FormatUnknown SourceFormat = ""
)

// headerProbeRows is how many non-blank rows are searched for the header; report
// exports often put a title and a date line above it.
const headerProbeRows = 5

var zipMagic = []byte("PK\x03\x04")

// DetectFormat looks at the first bytes of the file before trusting its extension.
// Point-of-sale systems routinely save HTML tables under an .xlsx or .xls name.
func DetectFormat(path string) (SourceFormat, error) {
	file, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer file.Close()

	head := make([]byte, 4096)
	n, err := io.ReadFull(file, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FormatUnknown, err
	}
	return detectFormat(filepath.Ext(path), head[:n]), nil
}

func detectFormat(ext string, head []byte) SourceFormat {
	if bytes.HasPrefix(head, zipMagic) {
		return FormatXLSX
	}
	lower := bytes.ToLower(bytes.TrimLeft(head, "\ufeff \t\r\n"))
	if bytes.Contains(lower, []byte("<table")) || bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html")) {
		return FormatHTML
	}

	switch strings.ToLower(ext) {
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		return FormatXLSX
	case ".csv":
		return FormatCSV
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatUnknown
	}
}

// findHeaderRow returns the index of the header row: the first of the leading
// non-blank rows that looks like a header, else the first non-blank row.
// It returns -1 for a grid with no content.
func findHeaderRow(rows [][]string) int {
	first := -1
	probed := 0
	for i, row := range rows {
		if isBlankRow(row) {
			continue
		}
		if first < 0 {
			first = i
		}
		if looksLikeHeader(row) {
			return i
		}
		probed++
		if probed >= headerProbeRows {
			break
		}
	}
	return first
}

// looksLikeHeader needs two cells naming a bucket, or one next to a Category cell.
// A title such as "Aging 61-90 to 181-360" is a single cell and does not qualify.
func looksLikeHeader(row []string) bool {
	buckets, category := 0, false
	for _, cell := range row {
		if _, ok := MatchBucket(cell); ok {
			buckets++
			continue
		}
		if util.SameLabel(util.NormalizeColumn(cell), internal.ColumnCategory) {
			category = true
		}
	}
	return buckets >= 2 || (buckets == 1 && category)
}
