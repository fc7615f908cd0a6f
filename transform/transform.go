// Package transform 在 mark 编译之前对单个分面单元的记录做聚合与堆叠。
package transform

import (
	"strings"

	"github.com/ByLCY/vellum/binding"
	"github.com/ByLCY/vellum/scale"
	"github.com/ByLCY/vellum/spec"
)

// Row 是变换后的记录。Datum 指向源记录（或聚合生成的合成记录），从不复制。
type Row struct {
	Datum spec.Row
	// Start/End 是堆叠后沿数值通道的区间，仅在 Result.Stacked 时有效。
	Start, End float64
	// Slot 是分组柱的子带序号，未分组时为 -1。
	Slot int
	// Key 是类别通道值的规范键。
	Key string
}

// Result 是一个编码单元在一个分面单元内的变换结果。
type Result struct {
	Rows []Row

	Stacked bool
	Dodged  bool
	Mode    spec.StackMode
	// ValueChannel 是被堆叠的连续位置通道，CategoryChannel 是另一条位置通道。
	ValueChannel    spec.Channel
	CategoryChannel spec.Channel
	// Slots 是分组柱的子带数量。
	Slots int
}

// FieldOf 返回通道在变换后记录中的字段名；无字段的 count 聚合写入 "count"。
func FieldOf(def *spec.ChannelDef) string {
	if def == nil {
		return ""
	}
	if def.Field == "" && def.Aggregate != "" {
		return string(def.Aggregate)
	}
	return def.Field
}

// Apply 依次执行聚合与堆叠。scales 只需包含已冻结的类别比例尺：分组顺序取自分组通道的域。
func Apply(rows []spec.Row, u *spec.Unit, scales scale.Set) (*Result, error) {
	data, err := Aggregate(rows, u)
	if err != nil {
		return nil, err
	}
	res := &Result{Rows: make([]Row, len(data))}
	for i, d := range data {
		res.Rows[i] = Row{Datum: d, Slot: -1}
	}
	if err := stack(res, u, scales); err != nil {
		return nil, err
	}
	return res, nil
}

// Value reads a channel from a transformed row, falling back to the channel's constant.
func Value(r spec.Row, def *spec.ChannelDef) (any, bool) {
	if def == nil {
		return nil, false
	}
	if def.IsConstant() {
		return def.Value, true
	}
	return binding.Lookup(r, FieldOf(def))
}

// Train 用变换结果训练连续比例尺：被堆叠的通道按 Start/End 训练，其余通道按字段值训练。
func (r *Result) Train(s *scale.Scale, b scale.Binding) error {
	if r.Stacked && b.Channel == r.ValueChannel {
		for _, row := range r.Rows {
			if err := s.TrainNumber(row.Start); err != nil {
				return scale.TrainError(s, b, row.Start, err)
			}
			if err := s.TrainNumber(row.End); err != nil {
				return scale.TrainError(s, b, row.End, err)
			}
		}
		return nil
	}
	if !b.Def.HasField() && b.Def.Aggregate == "" {
		return nil
	}
	for _, row := range r.Rows {
		v, ok := Value(row.Datum, b.Def)
		if !ok {
			return spec.DataErrorf(spec.CodeMissingField, b.Path()+".field",
				"记录缺少字段 %q（通道 %s）", FieldOf(b.Def), b.Channel)
		}
		if err := s.Train(v); err != nil {
			return scale.TrainError(s, b, v, err)
		}
	}
	return nil
}

// groupKey 拼接若干字段值的规范键。
func groupKey(values []any) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = scale.Key(v)
	}
	return strings.Join(parts, "\x1f")
}
