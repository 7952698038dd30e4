package table

import (
	"errors"
	"fmt"
	"slices"
)

var (
	ErrSchemaMismatch  = errors.New("schema mismatch")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrUnknownColumn   = errors.New("unknown column")
)

// Schema is an ordered set of column names. It is immutable once built.
type Schema struct {
	columns []string
	index   map[string]int
}

func NewSchema(columns ...string) (*Schema, error) {
	s := &Schema{
		columns: slices.Clone(columns),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if _, dup := s.index[c]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateColumn, c)
		}
		s.index[c] = i
	}
	return s, nil
}

// MustSchema is NewSchema for fixed column lists known at compile time.
func MustSchema(columns ...string) *Schema {
	s, err := NewSchema(columns...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Columns() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.columns)
}

func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.columns)
}

func (s *Schema) Index(column string) (int, bool) {
	if s == nil {
		return 0, false
	}
	i, ok := s.index[column]
	return i, ok
}

// Equal reports whether both schemas list the same columns in the same order.
func (s *Schema) Equal(o *Schema) bool {
	return slices.Equal(s.Columns(), o.Columns())
}

// Record is one extracted row, aligned to its schema.
type Record struct {
	schema *Schema
	values []Value
}

// NewRecord returns an all-null record for schema.
func NewRecord(schema *Schema) Record {
	return Record{schema: schema, values: make([]Value, schema.Len())}
}

func (r Record) Schema() *Schema { return r.schema }

func (r Record) Values() []Value { return slices.Clone(r.values) }

func (r Record) Get(column string) (Value, bool) {
	i, ok := r.schema.Index(column)
	if !ok {
		return Value{}, false
	}
	return r.values[i], true
}

// Set assigns column. Records share no storage with each other, so Set only
// affects r and its copies made by plain assignment.
func (r Record) Set(column string, v Value) error {
	i, ok := r.schema.Index(column)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	r.values[i] = v
	return nil
}

// MustSet is Set for columns taken from the record's own schema definition.
func (r Record) MustSet(column string, v Value) {
	if err := r.Set(column, v); err != nil {
		panic(err)
	}
}

// Map returns the record keyed by column name.
func (r Record) Map() map[string]Value {
	m := make(map[string]Value, len(r.values))
	for i, c := range r.schema.columns {
		m[c] = r.values[i]
	}
	return m
}

// Fragment is the rows extracted from a single document.
type Fragment struct {
	Source  string
	Schema  *Schema
	Records []Record
}

func NewFragment(source string, schema *Schema) *Fragment {
	return &Fragment{Source: source, Schema: schema}
}

// Append adds a record. The record must have been built for the fragment's schema.
func (f *Fragment) Append(r Record) {
	f.Records = append(f.Records, r)
}

func (f *Fragment) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Records)
}

// Validate checks that every record uses the fragment schema and that each
// column holds a single kind of non-null value.
func (f *Fragment) Validate() error {
	kinds := make([]Kind, f.Schema.Len())
	for row, r := range f.Records {
		if r.schema != f.Schema && !r.schema.Equal(f.Schema) {
			return fmt.Errorf("%w: %s row %d has columns %v, want %v",
				ErrSchemaMismatch, f.Source, row, r.schema.Columns(), f.Schema.Columns())
		}
		for i, v := range r.values {
			if v.kind == KindNull {
				continue
			}
			if kinds[i] == KindNull {
				kinds[i] = v.kind
				continue
			}
			if kinds[i] != v.kind {
				return fmt.Errorf("%w: %s column %q mixes %s and %s",
					ErrSchemaMismatch, f.Source, f.Schema.columns[i], kinds[i], v.kind)
			}
		}
	}
	return nil
}

// Table is the merged result of one processing request.
type Table struct {
	Schema  *Schema
	Records []Record
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return t.Schema.Columns()
}

func (t *Table) Empty() bool { return t.Len() == 0 }

// Rows returns the table as value slices in column order.
func (t *Table) Rows() [][]Value {
	rows := make([][]Value, 0, t.Len())
	for _, r := range t.Records {
		rows = append(rows, r.Values())
	}
	return rows
}

// Aggregate concatenates fragments in order. Every fragment carrying a
// schema must agree with the first one; a disagreement fails the whole call
// and no table is returned. Fragments without a schema contribute nothing.
func Aggregate(fragments []*Fragment) (*Table, error) {
	t := &Table{}
	total := 0
	for _, f := range fragments {
		if f == nil || f.Schema == nil {
			continue
		}
		if t.Schema == nil {
			t.Schema = f.Schema
		} else if !t.Schema.Equal(f.Schema) {
			return nil, fmt.Errorf("%w: %s has columns %v, want %v",
				ErrSchemaMismatch, f.Source, f.Schema.Columns(), t.Schema.Columns())
		}
		if err := f.Validate(); err != nil {
			return nil, err
		}
		total += len(f.Records)
	}

	t.Records = make([]Record, 0, total)
	for _, f := range fragments {
		if f == nil || f.Schema == nil {
			continue
		}
		t.Records = append(t.Records, f.Records...)
	}

	if err := checkColumnKinds(t); err != nil {
		return nil, err
	}
	return t, nil
}

// checkColumnKinds rejects tables whose fragments disagree on a column's kind.
func checkColumnKinds(t *Table) error {
	f := &Fragment{Source: "table", Schema: t.Schema, Records: t.Records}
	return f.Validate()
}

// Preview returns the first limit records of t without reordering. The
// result has its own record slice; the records themselves are shared and
// must be treated as read-only.
func Preview(t *Table, limit int) *Table {
	if t == nil {
		return &Table{}
	}
	n := min(max(limit, 0), len(t.Records))
	return &Table{
		Schema:  t.Schema,
		Records: slices.Clone(t.Records[:n]),
	}
}
