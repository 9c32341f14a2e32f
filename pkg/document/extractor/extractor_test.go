// Copyright Open Responses Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		contains string // substring the result should contain
		wantErr  bool
	}{
		{
			name:     "plain text passthrough",
			filename: "readme.txt",
			content:  []byte("Hello, world!"),
			contains: "Hello, world!",
		},
		{
			name:     "markdown passthrough",
			filename: "NOTES.MD",
			content:  []byte("# Title\n\nbody"),
			contains: "# Title",
		},
		{
			name:     "HTML extraction",
			filename: "page.html",
			content:  []byte("<html><body><p>Hello</p><script>var x=1;</script><p>World</p></body></html>"),
			contains: "Hello",
		},
		{
			name:     "HTML skips script",
			filename: "page.htm",
			content:  []byte("<html><script>alert('x')</script><body>visible</body></html>"),
			contains: "visible",
		},
		{
			name:     "CSV rows keep column names",
			filename: "data.csv",
			content:  []byte("name,age,city\nAlice,30,NYC\nBob,25,LA"),
			contains: "name: Alice; age: 30; city: NYC",
		},
		{
			name:     "JSON flattened to paths",
			filename: "config.json",
			content:  []byte(`{"key":"value","num":42}`),
			contains: "key: value\nnum: 42",
		},
		{
			name:     "JSONL records",
			filename: "logs.jsonl",
			content:  []byte("{\"a\":1}\n{\"b\":2}"),
			contains: "a: 1\n\nb: 2",
		},
		{
			name:     "invalid JSON falls back to raw",
			filename: "bad.json",
			content:  []byte("not json at all"),
			contains: "not json at all",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ExtractText(tt.content, tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractText() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(result, tt.contains) {
				t.Errorf("ExtractText() = %q, want substring %q", result, tt.contains)
			}
		})
	}
}

func TestExtractHTML_NoScript(t *testing.T) {
	content := []byte("<html><head><style>body{}</style></head><body><p>Content here</p></body></html>")
	result, err := ExtractText(content, "test.html")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(result, "body{}") {
		t.Error("HTML extraction should strip style content")
	}
	if !strings.Contains(result, "Content here") {
		t.Errorf("expected 'Content here' in result, got %q", result)
	}
}

func TestExtractHTML_Structure(t *testing.T) {
	content := []byte(`<html><head><title>  Release
notes </title><style>p{}</style></head>
<body><h1>Version 2</h1><p>Adds   <b>upload</b> support.</p>
<ul><li>first</li><li>second</li></ul><noscript>enable js</noscript></body></html>`)

	got, err := ExtractText(content, "notes.html")
	if err != nil {
		t.Fatal(err)
	}
	want := "Title: Release notes\nVersion 2\nAdds upload support.\nfirst\nsecond"
	if got != want {
		t.Errorf("ExtractText() = %q, want %q", got, want)
	}
}

func TestExtractCSV(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"rows", "a,b,c\n1,2,3\n4,,6", "a: 1; b: 2; c: 3\na: 4; c: 6"},
		{"extra cells keep value", "a\n1,2", "a: 1; 2"},
		{"header only", "a,b", "a, b"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractText([]byte(tt.content), "data.csv")
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ExtractText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSON_Nested(t *testing.T) {
	content := []byte(`{"items":[{"name":"widget","tags":["a","b"]}],"meta":null,"ok":true,"count":1.50}`)
	got, err := ExtractText(content, "catalog.json")
	if err != nil {
		t.Fatal(err)
	}
	want := "count: 1.50\nitems[0].name: widget\nitems[0].tags[0]: a\nitems[0].tags[1]: b\nok: true"
	if got != want {
		t.Errorf("ExtractText() = %q, want %q", got, want)
	}
}

func TestExtractText_Errors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		want     error
	}{
		{"unknown extension", "data.xyz", []byte("raw"), ErrUnsupportedFormat},
		{"no extension", "README", []byte("raw"), ErrUnsupportedFormat},
		{"docx", "report.docx", []byte("PK\x03\x04"), ErrNotImplemented},
		{"invalid utf-8", "latin1.txt", []byte{0x66, 0xff, 0xfe}, ErrInvalidEncoding},
		{"invalid utf-8 csv", "latin1.csv", []byte{0x61, 0x2c, 0xff}, ErrInvalidEncoding},
		{"invalid utf-8 html", "latin1.html", []byte{0x3c, 0x70, 0x3e, 0xff}, ErrInvalidEncoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractText(tt.content, tt.filename)
			if !errors.Is(err, tt.want) {
				t.Fatalf("ExtractText() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExtractPDF_Corrupt(t *testing.T) {
	if _, err := ExtractText([]byte("definitely not a pdf"), "broken.pdf"); err == nil {
		t.Fatal("expected error for corrupt PDF")
	}
}
