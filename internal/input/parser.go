// Package input reads title lists out of plain-text, JSON and CSV files and
// normalizes each entry into a core.Query.
package input

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/Daiya404/CoverPics/internal/core"
)

var (
	ErrMalformedInput = errors.New("malformed input file")
	ErrEmptyInput     = errors.New("no titles found in input")

	// yearSuffixRe matches a trailing "(YYYY)" release-year hint.
	yearSuffixRe = regexp.MustCompile(`^(.*?)\s*\((19\d{2}|20\d{2}|2100)\)\s*$`)
)

// Format identifies how an input file is structured.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat converts a user supplied format name, "" meaning auto-detect.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return "", nil
	case "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unknown input format %q", s)
}

// SniffFormat picks a format from the file extension, defaulting to text.
func SniffFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".csv":
		return FormatCSV
	}
	return FormatText
}

// Options controls parsing behavior.
type Options struct {
	// Format of the file; zero value means sniff from the extension.
	Format Format

	// CSVHeader skips the first CSV row. Headers are never guessed; the
	// caller must flag them explicitly.
	CSVHeader bool
}

// ParseFile reads queries from path in input order, duplicates preserved.
// Returns ErrMalformedInput when the file cannot be parsed in its format and
// ErrEmptyInput when zero queries result.
func ParseFile(path string, opts Options) ([]core.Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input file: %w", err)
	}
	defer f.Close()

	format := opts.Format
	if format == "" {
		format = SniffFormat(path)
	}

	var queries []core.Query
	switch format {
	case FormatText:
		queries, err = parseText(f)
	case FormatJSON:
		queries, err = parseJSON(f)
	case FormatCSV:
		queries, err = parseCSV(f, opts.CSVHeader)
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}
	if err != nil {
		return nil, err
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyInput, path)
	}
	return queries, nil
}

// ParseList splits a comma-separated title list, the shape the --bulk flag
// supplies.
func ParseList(list string) ([]core.Query, error) {
	var queries []core.Query
	for _, part := range strings.Split(list, ",") {
		if q, ok := parseTitle(part); ok {
			queries = append(queries, q)
		}
	}
	if len(queries) == 0 {
		return nil, ErrEmptyInput
	}
	return queries, nil
}

func parseText(r io.Reader) ([]core.Query, error) {
	var queries []core.Query
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if q, ok := parseTitle(scanner.Text()); ok {
			queries = append(queries, q)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	return queries, nil
}

func parseJSON(r io.Reader) ([]core.Query, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	// Accept either a top-level array of strings or an object with a
	// "titles" key mapping to one. Any other shape is malformed.
	var titles []string
	if err := json.Unmarshal(data, &titles); err != nil {
		var wrapper struct {
			Titles *[]string `json:"titles"`
		}
		if err := json.Unmarshal(data, &wrapper); err != nil || wrapper.Titles == nil {
			return nil, fmt.Errorf("%w: expected array of strings or {\"titles\": [...]}", ErrMalformedInput)
		}
		titles = *wrapper.Titles
	}

	var queries []core.Query
	for _, title := range titles {
		if q, ok := parseTitle(title); ok {
			queries = append(queries, q)
		}
	}
	return queries, nil
}

func parseCSV(r io.Reader, header bool) ([]core.Query, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var queries []core.Query
	first := true
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		if first && header {
			first = false
			continue
		}
		first = false
		if len(record) == 0 {
			continue
		}
		if q, ok := parseTitle(record[0]); ok {
			queries = append(queries, q)
		}
	}
	return queries, nil
}

// parseTitle normalizes one raw entry: an optional "movie:"/"tv:" prefix
// becomes the media-type hint and a trailing "(YYYY)" becomes the year hint.
// Blank entries are dropped.
func parseTitle(raw string) (core.Query, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return core.Query{}, false
	}

	q := core.Query{MediaTypeHint: core.MediaTypeAny}
	lower := strings.ToLower(text)
	switch {
	case strings.HasPrefix(lower, "movie:"):
		q.MediaTypeHint = core.MediaTypeMovie
		text = strings.TrimSpace(text[len("movie:"):])
	case strings.HasPrefix(lower, "tv:"):
		q.MediaTypeHint = core.MediaTypeTV
		text = strings.TrimSpace(text[len("tv:"):])
	}

	if m := yearSuffixRe.FindStringSubmatch(text); m != nil && strings.TrimSpace(m[1]) != "" {
		text = strings.TrimSpace(m[1])
		q.YearHint, _ = strconv.Atoi(m[2])
	}

	if text == "" {
		return core.Query{}, false
	}
	q.Text = text
	return q, true
}
