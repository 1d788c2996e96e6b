package export

import (
	"encoding/gob"
	"io"
	"os"
)

// File is the object graph stored in the gob encoding.
type File struct {
	Columns []string
	Rows    [][]any
}

func WriteGob(w io.Writer, columns []string, rows [][]any) error {
	return gob.NewEncoder(w).Encode(File{Columns: columns, Rows: rows})
}

// ReadGob loads a file written by WriteGob.
func ReadGob(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	var f File
	if err := gob.NewDecoder(fh).Decode(&f); err != nil {
		return nil, err
	}
	return &f, nil
}
