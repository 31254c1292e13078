// Package csvimport reads UTF-8 CSV uploads row by row and validates each
// row against a set of column rules, collecting errors with their line numbers.
package csvimport

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	// ErrEmptyFile is returned when the upload has no content
	ErrEmptyFile = errors.New("CSV file is empty")

	// ErrInvalidEncoding is returned when the upload is not UTF-8
	ErrInvalidEncoding = errors.New("CSV file is not valid UTF-8")

	// ErrMissingHeader is returned when the header row cannot be read
	ErrMissingHeader = errors.New("CSV file missing header row")
)

const encodingSniffSize = 4096

// Parser reads a CSV stream whose first row names the columns
type Parser struct {
	reader  *csv.Reader
	headers []string
	index   map[string]int
	line    int
}

// ParserOption configures a Parser
type ParserOption func(*csv.Reader)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) ParserOption {
	return func(r *csv.Reader) {
		r.Comma = d
	}
}

// NewParser strips a UTF-8 byte order mark, checks the encoding of the
// first block and reads the header row.
func NewParser(r io.Reader, opts ...ParserOption) (*Parser, error) {
	br := bufio.NewReader(r)

	head, err := br.Peek(encodingSniffSize)
	if err != nil && err != io.EOF && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	full := len(head) == encodingSniffSize
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = br.Discard(3)
		head = head[3:]
	}
	if len(strings.TrimSpace(string(head))) == 0 {
		return nil, ErrEmptyFile
	}
	if full {
		head = trimPartialRune(head)
	}
	if !utf8.Valid(head) {
		return nil, ErrInvalidEncoding
	}

	cr := csv.NewReader(br)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	for _, opt := range opts {
		opt(cr)
	}

	p := &Parser{reader: cr, index: make(map[string]int)}
	record, err := cr.Read()
	if err == io.EOF {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	p.line = 1
	for i, h := range record {
		h = strings.ToLower(strings.TrimSpace(h))
		p.headers = append(p.headers, h)
		p.index[h] = i
	}
	return p, nil
}

// trimPartialRune drops a rune cut in half by the end of a full sniff window
func trimPartialRune(b []byte) []byte {
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		r, size := utf8.DecodeLastRune(b)
		if r != utf8.RuneError || size != 1 {
			return b
		}
		b = b[:len(b)-1]
	}
	return b
}

// Headers returns the lower-cased column names
func (p *Parser) Headers() []string {
	return p.headers
}

// Missing returns the required columns absent from the header
func (p *Parser) Missing(required ...string) []string {
	var missing []string
	for _, h := range required {
		if _, ok := p.index[h]; !ok {
			missing = append(missing, h)
		}
	}
	return missing
}

// Row is one data row keyed by column name
type Row struct {
	Line int
	Data map[string]string
}

// Get returns the trimmed value of a column, "" when absent
func (r *Row) Get(column string) string {
	return r.Data[column]
}

// IsEmpty reports whether every cell is blank
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// Next returns the next row, or io.EOF
func (p *Parser) Next() (*Row, error) {
	record, err := p.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	p.line++
	if err != nil {
		return nil, fmt.Errorf("error reading row %d: %w", p.line, err)
	}
	row := &Row{Line: p.line, Data: make(map[string]string, len(p.headers))}
	for i, h := range p.headers {
		if i < len(record) {
			row.Data[h] = strings.TrimSpace(record[i])
		} else {
			row.Data[h] = ""
		}
	}
	return row, nil
}

// Rows reads every remaining non-blank row, stopping after limit rows when
// limit is positive.
func (p *Parser) Rows(limit int) ([]*Row, error) {
	var rows []*Row
	for {
		row, err := p.Next()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		if row.IsEmpty() {
			continue
		}
		if limit > 0 && len(rows) == limit {
			return rows, fmt.Errorf("file exceeds %d data rows", limit)
		}
		rows = append(rows, row)
	}
}
