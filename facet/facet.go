// Package facet 按分面字段把数据集划分为网格单元。每条记录恰好落入一个单元。
package facet

import (
	"math"

	"github.com/ByLCY/vellum/binding"
	"github.com/ByLCY/vellum/scale"
	"github.com/ByLCY/vellum/spec"
)

// Cell 是一个分面单元：网格位置、分面字段取值与按源顺序排列的记录子集。
type Cell struct {
	Index  int
	Row    int
	Column int

	RowValue    any
	ColumnValue any
	RowLabel    string
	ColumnLabel string

	Rows []spec.Row
	// Source 是 Rows 中每条记录在源数据中的下标。
	Source []int
}

// Label 返回单元格标题：列（或折行）标签优先，两者都有时以 " / " 连接。
func (c Cell) Label() string {
	switch {
	case c.RowLabel != "" && c.ColumnLabel != "":
		return c.RowLabel + " / " + c.ColumnLabel
	case c.ColumnLabel != "":
		return c.ColumnLabel
	default:
		return c.RowLabel
	}
}

// Partition converts the cell into the scale resolver's input.
func (c Cell) Partition() scale.Partition {
	return scale.Partition{Rows: c.Rows, Index: c.Source}
}

// Grid 是网格的行列数。只有被占用的位置才有对应的 Cell。
type Grid struct {
	Rows    int
	Columns int
	// Headers 为真时单元格上方需要留出标题带。
	Headers bool
}

// Partitions returns the resolver input for every cell, in cell order.
func Partitions(cells []Cell) []scale.Partition {
	out := make([]scale.Partition, len(cells))
	for i, c := range cells {
		out[i] = c.Partition()
	}
	return out
}

// dimension 是单个分面维度上的取值，顺序为首次出现顺序或声明顺序。
type dimension struct {
	field  *spec.FacetField
	values []any
	index  map[string]int
	// key[i] 是第 i 条记录在该维度上的取值下标
	key []int
}

// Partition 以一次稳定遍历完成分组。f 为 nil 时返回包含全部记录的单个单元。
func Partition(rows []spec.Row, f *spec.FacetSpec) ([]Cell, Grid, error) {
	if f == nil {
		c := Cell{Rows: rows, Source: make([]int, len(rows))}
		for i := range rows {
			c.Source[i] = i
		}
		return []Cell{c}, Grid{Rows: 1, Columns: 1}, nil
	}
	if f.Wrap != nil {
		return wrap(rows, f)
	}

	var rowDim, colDim *dimension
	var err error
	if f.Row != nil {
		if rowDim, err = collect(rows, f.Row, "facet.row"); err != nil {
			return nil, Grid{}, err
		}
	}
	if f.Column != nil {
		if colDim, err = collect(rows, f.Column, "facet.column"); err != nil {
			return nil, Grid{}, err
		}
	}

	grid := Grid{Rows: 1, Columns: 1, Headers: true}
	if rowDim != nil {
		grid.Rows = len(rowDim.values)
	}
	if colDim != nil {
		grid.Columns = len(colDim.values)
	}

	// 网格位置 -> 单元下标；单元按行优先排列
	slot := make([]int, grid.Rows*grid.Columns)
	for i := range slot {
		slot[i] = -1
	}
	pos := func(i int) (int, int) {
		r, c := 0, 0
		if rowDim != nil {
			r = rowDim.key[i]
		}
		if colDim != nil {
			c = colDim.key[i]
		}
		return r, c
	}
	for i := range rows {
		r, c := pos(i)
		slot[r*grid.Columns+c] = 0
	}
	var cells []Cell
	for s, used := range slot {
		if used < 0 {
			continue
		}
		r, c := s/grid.Columns, s%grid.Columns
		cell := Cell{Index: len(cells), Row: r, Column: c}
		if rowDim != nil {
			cell.RowValue = rowDim.values[r]
			cell.RowLabel = rowDim.label(r)
		}
		if colDim != nil {
			cell.ColumnValue = colDim.values[c]
			cell.ColumnLabel = colDim.label(c)
		}
		slot[s] = cell.Index
		cells = append(cells, cell)
	}
	for i, row := range rows {
		r, c := pos(i)
		cell := &cells[slot[r*grid.Columns+c]]
		cell.Rows = append(cell.Rows, row)
		cell.Source = append(cell.Source, i)
	}
	return cells, grid, nil
}

// wrap 把单一维度按 Columns 列行优先排布，未声明列数时取 ⌈√n⌉。
func wrap(rows []spec.Row, f *spec.FacetSpec) ([]Cell, Grid, error) {
	dim, err := collect(rows, f.Wrap, "facet.wrap")
	if err != nil {
		return nil, Grid{}, err
	}
	n := len(dim.values)
	cols := f.Columns
	if cols <= 0 {
		cols = int(math.Ceil(math.Sqrt(float64(n))))
	}
	if cols > n {
		cols = n
	}
	if cols == 0 {
		cols = 1
	}
	grid := Grid{Rows: (n + cols - 1) / cols, Columns: cols, Headers: true}
	if grid.Rows == 0 {
		grid.Rows = 1
	}
	cells := make([]Cell, n)
	for i := range cells {
		cells[i] = Cell{
			Index:       i,
			Row:         i / cols,
			Column:      i % cols,
			ColumnValue: dim.values[i],
			ColumnLabel: dim.label(i),
		}
	}
	for i, row := range rows {
		c := &cells[dim.key[i]]
		c.Rows = append(c.Rows, row)
		c.Source = append(c.Source, i)
	}
	return cells, grid, nil
}

// collect 读取每条记录的分面取值。有序字段按声明顺序（或自然升序）排列，其余按首次出现顺序。
func collect(rows []spec.Row, field *spec.FacetField, path string) (*dimension, error) {
	d := &dimension{field: field, index: map[string]int{}, key: make([]int, len(rows))}
	raw := make([]any, len(rows))
	var firstSeen []any
	seen := map[string]bool{}
	for i, row := range rows {
		v, ok := binding.Lookup(row, field.Field)
		if !ok {
			return nil, spec.FacetErrorf(spec.CodeFacetFieldMissing, path+".field",
				"第 %d 条记录缺少分面字段 %q", i, field.Field)
		}
		raw[i] = v
		if k := scale.Key(v); !seen[k] {
			seen[k] = true
			firstSeen = append(firstSeen, v)
		}
	}

	d.values = firstSeen
	if field.Type == spec.Ordinal {
		dom := scale.NewDomain(spec.Ordinal, field.Sort)
		var null []any
		for _, v := range firstSeen {
			if v == nil {
				null = append(null, v)
				continue
			}
			// 类别域只在冻结后拒绝训练
			_ = dom.Add(v)
		}
		dom.Freeze()
		d.values = append(append([]any(nil), dom.Values()...), null...)
	}
	for i, v := range d.values {
		d.index[scale.Key(v)] = i
	}
	for i, v := range raw {
		d.key[i] = d.index[scale.Key(v)]
	}
	return d, nil
}

// label 用字段的 title 模板生成标签；没有模板时直接格式化取值。
func (d *dimension) label(i int) string {
	v := d.values[i]
	if d.field.Title == "" {
		return binding.Format(v)
	}
	return binding.Interpolate(d.field.Title, map[string]any{d.field.Field: v, "value": v})
}
