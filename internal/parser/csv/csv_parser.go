// Package csv implements the CSV reader for raw extracts. Columns are mapped
// positionally onto a fixed schema and the header row, when present, is only
// skipped; its names are not trusted.
package csv

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charles-amali/lakehouse-architecture-transaction/pkg/records"
)

// Options configures the CSV parser behavior.
type Options struct {
	// HasHeader indicates whether the first row contains column headers.
	HasHeader bool

	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// Columns is the positional target schema. Missing trailing cells are
	// null and extra cells are ignored. When empty, the header names (or
	// col_N) are used as keys and every value stays a string.
	Columns []string

	// TrimSpace trims leading/trailing spaces from each field value.
	TrimSpace bool

	// SkipBadRows counts malformed lines instead of failing the parse.
	SkipBadRows bool
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct{ opt Options }

func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

const utf8BOM = "\uFEFF"

// Parse returns one record per data line with empty cells mapped to nil. The
// second result counts malformed lines skipped under SkipBadRows.
func (p *Parser) Parse(r io.Reader) ([]records.Record, int, error) {
	br := bufio.NewReaderSize(r, 64*1024)
	if err := skipBOM(br); err != nil {
		return nil, 0, fmt.Errorf("read csv: %w", err)
	}

	cr := csv.NewReader(br)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	keys := p.opt.Columns
	if p.opt.HasHeader {
		h, err := cr.Read()
		if err == io.EOF {
			return nil, 0, nil
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read csv header: %w", err)
		}
		if len(keys) == 0 {
			keys = normalizeHeaders(h)
		}
	}

	var out []records.Record
	var skipped int
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if p.opt.SkipBadRows && errors.As(err, &perr) {
				skipped++
				continue
			}
			return nil, skipped, fmt.Errorf("read csv: %w", err)
		}

		width := len(keys)
		if width == 0 {
			width = len(row)
		}
		rec := make(records.Record, width)
		for i := 0; i < width; i++ {
			var val string
			if i < len(row) {
				val = row[i]
			}
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[keyFor(i, keys)] = emptyToNil(val)
		}
		out = append(out, rec)
	}
	return out, skipped, nil
}

// skipBOM drops a leading UTF-8 byte order mark.
func skipBOM(br *bufio.Reader) error {
	b, err := br.Peek(len(utf8BOM))
	if err != nil && err != io.EOF {
		return err
	}
	if string(b) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}
	return nil
}

// keyFor returns the column key for index idx, synthesizing "col_N" when no
// name is known.
func keyFor(idx int, keys []string) string {
	if idx < len(keys) && keys[idx] != "" {
		return keys[idx]
	}
	return fmt.Sprintf("col_%d", idx)
}

func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// normalizeHeaders lowercases names and replaces spaces with underscores.
func normalizeHeaders(h []string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		res[i] = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(col)), " ", "_")
	}
	return res
}
