package dataset

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/sjwhitworth/golearn/base"
)

// Serialized floats keep this many decimal places. The golearn default of 2
// truncates training data on a csv round trip.
const floatPrecision = 12

// Table is a dense numeric dataset: named float columns with one column
// designated as the training target. It wraps a golearn DenseInstances so
// model code can operate on it directly via Grid.
type Table struct {
	instances *base.DenseInstances
	cols      []string
	target    string
	specs     []base.AttributeSpec
}

// New creates an empty table. The target column must be one of cols.
func New(cols []string, target string) (*Table, error) {
	if len(cols) == 0 {
		return nil, fmt.Errorf("table must have at least one column")
	}

	seen := make(map[string]bool, len(cols))
	for _, col := range cols {
		if seen[col] {
			return nil, fmt.Errorf("duplicate column '%s'", col)
		}
		seen[col] = true
	}
	if !seen[target] {
		return nil, fmt.Errorf("target column '%s' is not among the table columns", target)
	}

	instances := base.NewDenseInstances()
	specs := make([]base.AttributeSpec, len(cols))
	var class *base.FloatAttribute
	for i, col := range cols {
		attr := base.NewFloatAttribute(col)
		attr.Precision = floatPrecision
		specs[i] = instances.AddAttribute(attr)
		if col == target {
			class = attr
		}
	}
	if err := instances.AddClassAttribute(class); err != nil {
		return nil, fmt.Errorf("marking target column '%s': %w", target, err)
	}

	return &Table{
		instances: instances,
		cols:      append([]string(nil), cols...),
		target:    target,
		specs:     specs,
	}, nil
}

// FromCSV reads a table from csv data with a header row. All columns must be
// numeric. If target is empty the last column is used as the target.
func FromCSV(r io.Reader, target string) (*Table, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}

	// golearn's sniffer panics on csv data without rows, so check up front.
	lines := 0
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			lines++
		}
	}
	if lines < 2 {
		return nil, fmt.Errorf("csv has no data rows")
	}

	instances, err := base.ParseCSVToInstancesFromReader(bytes.NewReader(data), true)
	if err != nil {
		return nil, fmt.Errorf("parsing csv: %w", err)
	}

	attrs := instances.AllAttributes()
	cols := make([]string, len(attrs))
	specs := make([]base.AttributeSpec, len(attrs))
	var class *base.FloatAttribute
	for i, attr := range attrs {
		floatAttr, ok := attr.(*base.FloatAttribute)
		if !ok {
			return nil, fmt.Errorf("column '%s' is not numeric", attr.GetName())
		}
		floatAttr.Precision = floatPrecision

		spec, err := instances.GetAttribute(floatAttr)
		if err != nil {
			return nil, fmt.Errorf("resolving column '%s': %w", floatAttr.GetName(), err)
		}
		cols[i] = floatAttr.GetName()
		specs[i] = spec

		if floatAttr.GetName() == target {
			class = floatAttr
		}
	}

	if target == "" {
		class = attrs[len(attrs)-1].(*base.FloatAttribute)
		target = class.GetName()
	}
	if class == nil {
		return nil, fmt.Errorf("target column '%s' is not among the table columns", target)
	}

	// The parser tags the last column as the class attribute. Retag so the
	// requested target is the only class attribute.
	for _, attr := range instances.AllClassAttributes() {
		if err := instances.RemoveClassAttribute(attr); err != nil {
			return nil, fmt.Errorf("untagging class attribute: %w", err)
		}
	}
	if err := instances.AddClassAttribute(class); err != nil {
		return nil, fmt.Errorf("marking target column '%s': %w", target, err)
	}

	return &Table{instances: instances, cols: cols, target: target, specs: specs}, nil
}

// Append adds a row. Values follow the column order given to New.
func (t *Table) Append(row []float64) error {
	if len(row) != len(t.cols) {
		return fmt.Errorf("row has %d values, table has %d columns", len(row), len(t.cols))
	}

	_, rows := t.instances.Size()
	if err := t.instances.Extend(1); err != nil {
		return fmt.Errorf("extending table: %w", err)
	}
	for i, v := range row {
		t.instances.Set(t.specs[i], rows, base.PackFloatToBytes(v))
	}
	return nil
}

func (t *Table) Rows() int {
	_, rows := t.instances.Size()
	return rows
}

func (t *Table) Cols() []string {
	return append([]string(nil), t.cols...)
}

func (t *Table) Target() string {
	return t.target
}

// Value returns the cell at the given row and column.
func (t *Table) Value(row int, col string) (float64, error) {
	if row < 0 || row >= t.Rows() {
		return 0, fmt.Errorf("row %d out of range, table has %d rows", row, t.Rows())
	}
	for i, c := range t.cols {
		if c == col {
			return base.UnpackBytesToFloat(t.instances.Get(t.specs[i], row)), nil
		}
	}
	return 0, fmt.Errorf("unknown column '%s'", col)
}

// WriteCSV writes the table with a header row. The target column is written
// last regardless of its position, matching what FromCSV expects when no
// target name is given.
func (t *Table) WriteCSV(w io.Writer) error {
	if err := base.SerializeInstancesToCSVStream(t.instances, w); err != nil {
		return fmt.Errorf("serializing table: %w", err)
	}
	return nil
}

// Grid exposes the underlying golearn data grid for model code.
func (t *Table) Grid() base.FixedDataGrid {
	return t.instances
}
