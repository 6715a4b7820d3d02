package args

import (
	"fmt"
	"sort"

	"cloudfit/pkg/dataset"
)

// Kind identifies the type a parameter value carries. The set is closed:
// values are built through the constructors below, and anything else is
// rejected by Validate before a job touches the network.
type Kind int

const (
	KindInt Kind = iota + 1
	KindFloat
	KindStr
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindTable:
		return "table"
	default:
		return "invalid"
	}
}

// Value is a named parameter holding exactly one kind of payload.
type Value struct {
	name  string
	kind  Kind
	i     int64
	f     float64
	s     string
	table *dataset.Table
}

func Int(name string, v int64) Value {
	return Value{name: name, kind: KindInt, i: v}
}

func Float(name string, v float64) Value {
	return Value{name: name, kind: KindFloat, f: v}
}

func Str(name string, v string) Value {
	return Value{name: name, kind: KindStr, s: v}
}

func Table(name string, t *dataset.Table) Value {
	return Value{name: name, kind: KindTable, table: t}
}

func (v Value) Name() string { return v.name }

func (v Value) Kind() Kind { return v.kind }

func (v Value) Int() (int64, bool) {
	return v.i, v.kind == KindInt
}

func (v Value) Float() (float64, bool) {
	return v.f, v.kind == KindFloat
}

func (v Value) Str() (string, bool) {
	return v.s, v.kind == KindStr
}

func (v Value) Table() (*dataset.Table, bool) {
	return v.table, v.kind == KindTable
}

// Validate checks that every value carries a known kind, a name, and no
// duplicates. It runs before any serialization or network use, so a bad
// parameter fails the call instead of the job.
func Validate(values []Value) error {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		if v.name == "" {
			return fmt.Errorf("parameter with empty name")
		}
		if seen[v.name] {
			return fmt.Errorf("duplicate parameter '%s'", v.name)
		}
		seen[v.name] = true

		switch v.kind {
		case KindInt, KindFloat, KindStr:
		case KindTable:
			if v.table == nil {
				return fmt.Errorf("parameter '%s' has a nil table", v.name)
			}
		default:
			return fmt.Errorf("parameter '%s' has unsupported kind %s", v.name, v.kind)
		}
	}
	return nil
}

// Partition splits values into primitives, which are inlined into the job
// manifest, and complexes, which are serialized to the staging location.
func Partition(values []Value) (primitives, complexes []Value) {
	for _, v := range values {
		if v.kind == KindTable {
			complexes = append(complexes, v)
		} else {
			primitives = append(primitives, v)
		}
	}
	return primitives, complexes
}

// Params is an immutable name to value set a model reads its arguments from.
type Params struct {
	values map[string]Value
}

func NewParams(values ...Value) (*Params, error) {
	if err := Validate(values); err != nil {
		return nil, err
	}

	params := make(map[string]Value, len(values))
	for _, v := range values {
		params[v.name] = v
	}
	return &Params{values: params}, nil
}

func (p *Params) Names() []string {
	names := make([]string, 0, len(p.values))
	for name := range p.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (p *Params) Values() []Value {
	values := make([]Value, 0, len(p.values))
	for _, name := range p.Names() {
		values = append(values, p.values[name])
	}
	return values
}

func (p *Params) Int(name string) (int64, bool) {
	v, ok := p.values[name]
	if !ok {
		return 0, false
	}
	return v.Int()
}

func (p *Params) Float(name string) (float64, bool) {
	v, ok := p.values[name]
	if !ok {
		return 0, false
	}
	return v.Float()
}

func (p *Params) Str(name string) (string, bool) {
	v, ok := p.values[name]
	if !ok {
		return "", false
	}
	return v.Str()
}

func (p *Params) Table(name string) (*dataset.Table, bool) {
	v, ok := p.values[name]
	if !ok {
		return nil, false
	}
	return v.Table()
}

func (p *Params) require(name string, kind Kind) (Value, error) {
	v, ok := p.values[name]
	if !ok {
		return Value{}, fmt.Errorf("missing required parameter '%s'", name)
	}
	if v.kind != kind {
		return Value{}, fmt.Errorf("parameter '%s' has kind %s, expected %s", name, v.kind, kind)
	}
	return v, nil
}

func (p *Params) RequireInt(name string) (int64, error) {
	v, err := p.require(name, KindInt)
	if err != nil {
		return 0, err
	}
	return v.i, nil
}

func (p *Params) RequireFloat(name string) (float64, error) {
	v, err := p.require(name, KindFloat)
	if err != nil {
		return 0, err
	}
	return v.f, nil
}

func (p *Params) RequireStr(name string) (string, error) {
	v, err := p.require(name, KindStr)
	if err != nil {
		return "", err
	}
	return v.s, nil
}

func (p *Params) RequireTable(name string) (*dataset.Table, error) {
	v, err := p.require(name, KindTable)
	if err != nil {
		return nil, err
	}
	return v.table, nil
}
