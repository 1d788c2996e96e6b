package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/anidataset/anidataset/pkg/dataset"
)

const DefaultBaseName = "anilist_anime_data_complete"

type Encoding string

const (
	CSV  Encoding = "csv"
	XLSX Encoding = "xlsx"
	Gob  Encoding = "gob"
)

// AllEncodings is every supported encoding in write order.
var AllEncodings = []Encoding{CSV, XLSX, Gob}

func ParseEncoding(s string) (Encoding, error) {
	switch e := Encoding(s); e {
	case CSV, XLSX, Gob:
		return e, nil
	}
	return "", fmt.Errorf("unknown encoding %q (want csv, xlsx or gob)", s)
}

type Options struct {
	Dir       string
	BaseName  string     // defaults to DefaultBaseName
	Encodings []Encoding // defaults to AllEncodings
}

// Result is the outcome of writing one encoding.
type Result struct {
	Encoding Encoding
	Path     string
	Rows     int
	// Truncated counts cells cut to the spreadsheet cell size limit.
	Truncated int
	Err       error
}

// Path returns the file name used for enc.
func (o Options) Path(enc Encoding) string {
	base := o.BaseName
	if base == "" {
		base = DefaultBaseName
	}
	return filepath.Join(o.Dir, base+"."+string(enc))
}

// Export writes rows in every requested encoding. Each encoding is written
// independently; a failure in one does not stop the others.
func Export(rows []dataset.Row, opts Options) []Result {
	encs := opts.Encodings
	if len(encs) == 0 {
		encs = AllEncodings
	}

	results := make([]Result, 0, len(encs))
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			for _, enc := range encs {
				results = append(results, Result{Encoding: enc, Path: opts.Path(enc), Err: err})
			}
			return results
		}
	}

	cols := dataset.Columns()
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = r.Values()
	}

	for _, enc := range encs {
		res := Result{Encoding: enc, Path: opts.Path(enc), Rows: len(rows)}
		switch enc {
		case CSV:
			res.Err = writeAtomic(res.Path, func(w io.Writer) error {
				return WriteCSV(w, cols, values)
			})
		case XLSX:
			res.Err = writeAtomic(res.Path, func(w io.Writer) error {
				n, err := WriteXLSX(w, cols, values)
				res.Truncated = n
				return err
			})
		case Gob:
			res.Err = writeAtomic(res.Path, func(w io.Writer) error {
				return WriteGob(w, cols, values)
			})
		default:
			res.Err = fmt.Errorf("unknown encoding %q", enc)
		}
		if res.Err != nil {
			res.Rows = 0
		}
		results = append(results, res)
	}
	return results
}

// Succeeded counts the results without an error.
func Succeeded(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// writeAtomic writes through a temp file in the target directory and renames
// it into place, so a failed write never leaves a half written export.
func writeAtomic(path string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// cellString renders a non-nil cell for text encodings.
func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
