// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// extractJSON flattens a JSON document into "path: value" lines
// (items[0].name: widget), keys in sorted order. Content that is not valid
// JSON is indexed as plain text.
func extractJSON(content []byte) (string, error) {
	text, err := extractText(content)
	if err != nil {
		return "", err
	}
	v, ok := decodeJSON(content)
	if !ok {
		return text, nil
	}
	var lines []string
	flattenJSON("", v, &lines)
	return strings.Join(lines, "\n"), nil
}

// extractJSONL flattens each record of a JSON Lines file and separates
// records with a blank line. Lines that are not valid JSON are kept as-is.
func extractJSONL(content []byte) (string, error) {
	if _, err := extractText(content); err != nil {
		return "", err
	}
	var records []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, ok := decodeJSON([]byte(line))
		if !ok {
			records = append(records, line)
			continue
		}
		var lines []string
		flattenJSON("", v, &lines)
		records = append(records, strings.Join(lines, "\n"))
	}
	return strings.Join(records, "\n\n"), nil
}

func decodeJSON(content []byte) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader(content))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, true
}

func flattenJSON(path string, v any, out *[]string) {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			next := k
			if path != "" {
				next = path + "." + k
			}
			flattenJSON(next, val[k], out)
		}
	case []any:
		for i, item := range val {
			flattenJSON(path+"["+strconv.Itoa(i)+"]", item, out)
		}
	case nil:
		// null carries nothing worth retrieving.
	default:
		if path == "" {
			*out = append(*out, fmt.Sprint(val))
			return
		}
		*out = append(*out, path+": "+fmt.Sprint(val))
	}
}
