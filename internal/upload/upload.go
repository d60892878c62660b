// Package upload pushes local spreadsheet and CSV extracts into the raw area
// of the object store. Every sheet of a workbook becomes its own CSV object
// under raw/{workbook}/; a plain CSV goes to raw/{name}/{name}.csv. Empty
// sheets and files are uploaded as empty objects.
package upload

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/charles-amali/lakehouse-architecture-transaction/internal/datasource/file"
	"github.com/charles-amali/lakehouse-architecture-transaction/internal/objectstore"
)

// DefaultWorkers bounds concurrent file uploads when Workers is unset.
const DefaultWorkers = 4

// Uploader uploads the extracts found in a local directory.
type Uploader struct {
	Store     objectstore.Store
	Bucket    string
	RawPrefix string // defaults to "raw"
	Workers   int
	Log       *zap.Logger
}

// Dir uploads every .xlsx and .csv file directly inside dir and returns the
// keys written, sorted. Other files are ignored. The first failure cancels
// the remaining uploads and is returned.
func (u Uploader) Dir(ctx context.Context, dir string) ([]string, error) {
	files, err := file.Dir(dir, ".xlsx", ".csv")
	if err != nil {
		return nil, err
	}
	log := u.Log
	if log == nil {
		log = zap.NewNop()
	}
	workers := u.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	var (
		mu   sync.Mutex
		keys []string
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, f := range files {
		f := f
		g.Go(func() error {
			var written []string
			var err error
			switch f.Ext() {
			case ".xlsx":
				written, err = u.workbook(ctx, f)
			case ".csv":
				written, err = u.csvFile(ctx, f)
			}
			if err != nil {
				return err
			}
			for _, k := range written {
				log.Info("uploaded", zap.String("file", f.Name()), zap.String("key", "s3://"+u.Bucket+"/"+k))
			}
			mu.Lock()
			keys = append(keys, written...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

func (u Uploader) prefix() string {
	p := u.RawPrefix
	if p == "" {
		p = "raw"
	}
	return strings.TrimRight(p, "/") + "/"
}

func (u Uploader) workbook(ctx context.Context, f *file.Local) ([]string, error) {
	rc, err := f.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	wb, err := excelize.OpenReader(rc)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", f.Name(), err)
	}
	defer wb.Close()

	var keys []string
	for _, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return keys, fmt.Errorf("read sheet %q of %s: %w", sheet, f.Name(), err)
		}
		key := fmt.Sprintf("%s%s/%s.csv", u.prefix(), f.Base(), CleanSheetName(sheet))
		if err := u.put(ctx, key, Normalize(rows)); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (u Uploader) csvFile(ctx context.Context, f *file.Local) ([]string, error) {
	rc, err := f.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	rows, err := readCSV(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name(), err)
	}
	key := fmt.Sprintf("%s%s/%s.csv", u.prefix(), f.Base(), f.Base())
	if err := u.put(ctx, key, Normalize(rows)); err != nil {
		return nil, err
	}
	return []string{key}, nil
}

func (u Uploader) put(ctx context.Context, key string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := u.Store.Put(ctx, u.Bucket, key, &buf); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr.ReadAll()
}

// Normalize keeps the first row as the header, drops data rows whose cells
// are all empty and pads every row to the widest row. Header cells added by
// padding are named "Unnamed: N".
func Normalize(rows [][]string) [][]string {
	if len(rows) == 0 {
		return nil
	}
	width := 0
	for _, r := range rows {
		if len(r) > width {
			width = len(r)
		}
	}
	if width == 0 {
		return nil
	}
	out := make([][]string, 0, len(rows))
	header := pad(rows[0], width)
	for i := len(rows[0]); i < width; i++ {
		header[i] = fmt.Sprintf("Unnamed: %d", i)
	}
	out = append(out, header)
	for _, r := range rows[1:] {
		if blank(r) {
			continue
		}
		out = append(out, pad(r, width))
	}
	return out
}

func pad(r []string, width int) []string {
	out := make([]string, width)
	copy(out, r)
	return out
}

func blank(r []string) bool {
	for _, c := range r {
		if c != "" {
			return false
		}
	}
	return true
}

// CleanSheetName folds a sheet name into an object key segment: diacritics
// are stripped, letters lowercased and spaces replaced by underscores.
func CleanSheetName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ReplaceAll(strings.ToLower(folded), " ", "_")
}
