package dataset

// Dataset is the de-duplicated, fetch-ordered set of rows of one run.
type Dataset struct {
	rows       []Row
	index      map[int]int
	duplicates int
}

func New() *Dataset {
	return &Dataset{index: make(map[int]int)}
}

// Add appends r unless a row with the same id is already present, in which
// case the earlier row wins and the duplicate is counted. Rows without an id
// are rejected.
func (d *Dataset) Add(r Row) bool {
	id, ok := r.Key()
	if !ok {
		return false
	}
	if _, seen := d.index[id]; seen {
		d.duplicates++
		return false
	}
	d.index[id] = len(d.rows)
	d.rows = append(d.rows, r)
	return true
}

// Get returns the row stored for id.
func (d *Dataset) Get(id int) (Row, bool) {
	i, ok := d.index[id]
	if !ok {
		return Row{}, false
	}
	return d.rows[i], true
}

// Rows returns the rows in the order they were first seen. The slice is
// shared and must not be modified.
func (d *Dataset) Rows() []Row { return d.rows }

func (d *Dataset) Len() int { return len(d.rows) }

// Duplicates is the number of rows dropped because their id was already present.
func (d *Dataset) Duplicates() int { return d.duplicates }
