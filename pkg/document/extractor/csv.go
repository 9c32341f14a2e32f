// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
)

// extractCSV renders every data row as one line of "column: value" pairs
// taken from the header row, so a chunk holding a row still says what each
// value means. Empty cells are dropped. Content that does not parse as CSV
// is indexed as plain text.
func extractCSV(content []byte) (string, error) {
	text, err := extractText(content)
	if err != nil {
		return "", err
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return text, nil
	}

	var rows []string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return text, nil
		}
		if row := csvRow(header, record); row != "" {
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		return strings.Join(header, ", "), nil
	}
	return strings.Join(rows, "\n"), nil
}

func csvRow(header, record []string) string {
	pairs := make([]string, 0, len(record))
	for i, v := range record {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			pairs = append(pairs, v)
			continue
		}
		pairs = append(pairs, name+": "+v)
	}
	return strings.Join(pairs, "; ")
}
