package scale

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ByLCY/vellum/binding"
	"github.com/ByLCY/vellum/spec"
)

var (
	errFrozen   = errors.New("domain is frozen")
	errMismatch = errors.New("value does not match classification")
)

// Domain 累积比例尺观测到的输入值。训练只增不减，Freeze 之后任何修改都会报错。
type Domain struct {
	typ    spec.DataType
	frozen bool

	// 类别域
	values   []any
	index    map[string]int
	declared map[string]int

	// 连续域（时间以 Unix 毫秒保存）
	min, max float64
	count    int
}

// NewDomain creates an empty domain. For ordinal domains sort fixes the order.
func NewDomain(t spec.DataType, sort []any) *Domain {
	d := &Domain{typ: t, index: map[string]int{}, min: math.Inf(1), max: math.Inf(-1)}
	if len(sort) > 0 {
		d.declared = make(map[string]int, len(sort))
		for i, v := range sort {
			if _, ok := d.declared[Key(v)]; !ok {
				d.declared[Key(v)] = i
			}
		}
	}
	return d
}

// Key 返回类别值的规范字符串，用作去重与查找键。
func Key(v any) string { return binding.Format(v) }

func (d *Domain) Type() spec.DataType { return d.typ }
func (d *Domain) Frozen() bool        { return d.frozen }

// Add trains the domain with one raw value. nil values are ignored.
func (d *Domain) Add(v any) error {
	if d.frozen {
		return errFrozen
	}
	if v == nil {
		return nil
	}
	switch d.typ {
	case spec.Quantitative:
		f, ok := ToNumber(v)
		if !ok {
			return errMismatch
		}
		d.addNumber(f)
	case spec.Temporal:
		t, ok := spec.ParseTime(v)
		if !ok {
			return errMismatch
		}
		d.addNumber(float64(t.UnixMilli()))
	default:
		k := Key(v)
		if _, ok := d.index[k]; !ok {
			d.index[k] = len(d.values)
			d.values = append(d.values, v)
		}
	}
	return nil
}

// AddNumber trains a continuous domain with an already numeric value, such as a stacked offset.
func (d *Domain) AddNumber(f float64) error {
	if d.frozen {
		return errFrozen
	}
	if d.typ.Categorical() {
		return errMismatch
	}
	d.addNumber(f)
	return nil
}

func (d *Domain) addNumber(f float64) {
	if math.IsNaN(f) {
		return
	}
	d.min = math.Min(d.min, f)
	d.max = math.Max(d.max, f)
	d.count++
}

// Freeze 固定域。有序类别在此时按声明顺序或自然升序排序；无序类别保持首次出现顺序。
func (d *Domain) Freeze() {
	if d.frozen {
		return
	}
	if d.typ == spec.Ordinal {
		d.sortOrdinal()
	}
	d.frozen = true
}

func (d *Domain) sortOrdinal() {
	firstSeen := make(map[string]int, len(d.values))
	for i, v := range d.values {
		firstSeen[Key(v)] = i
	}
	sort.SliceStable(d.values, func(i, j int) bool {
		ki, kj := Key(d.values[i]), Key(d.values[j])
		if d.declared != nil {
			pi, iok := d.declared[ki]
			pj, jok := d.declared[kj]
			switch {
			case iok && jok:
				return pi < pj
			case iok != jok:
				return iok
			default:
				return firstSeen[ki] < firstSeen[kj]
			}
		}
		return naturalLess(d.values[i], d.values[j])
	})
	for i, v := range d.values {
		d.index[Key(v)] = i
	}
}

func naturalLess(a, b any) bool {
	fa, aok := ToNumber(a)
	fb, bok := ToNumber(b)
	if aok && bok {
		return fa < fb
	}
	return Key(a) < Key(b)
}

// Len returns the number of distinct categories or continuous observations.
func (d *Domain) Len() int {
	if d.typ.Categorical() {
		return len(d.values)
	}
	return d.count
}

// Values returns categories in domain order.
func (d *Domain) Values() []any { return d.values }

// Index returns the position of a category.
func (d *Domain) Index(v any) (int, bool) {
	i, ok := d.index[Key(v)]
	return i, ok
}

// Extent returns the observed continuous bounds.
func (d *Domain) Extent() (float64, float64) { return d.min, d.max }

// clone 复制域，供独立比例尺在各分面单元内单独训练。
func (d *Domain) clone() *Domain {
	out := NewDomain(d.typ, nil)
	out.declared = d.declared
	return out
}

// ToNumber reads a finite numeric value, accepting numeric strings.
func ToNumber(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(x), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	// "NaN"、"Inf" 会被 ParseFloat 接受，但无法参与域训练与刻度计算
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
