package transform

import (
	"sort"

	"github.com/ByLCY/vellum/binding"
	"github.com/ByLCY/vellum/scale"
	"github.com/ByLCY/vellum/spec"
)

// stack 只作用于带分组通道的 bar/area；没有分组通道时什么都不做。
func stack(res *Result, u *spec.Unit, scales scale.Set) error {
	if !u.Mark.Type.Stackable() {
		return nil
	}
	groupCh, groupDef := u.Encoding.Grouping()
	if groupDef == nil {
		return nil
	}
	orient, err := u.Orient()
	if err != nil {
		return err
	}
	valueCh, catCh, boundCh := spec.ChannelY, spec.ChannelX, spec.ChannelY2
	if orient == spec.Horizontal {
		valueCh, catCh, boundCh = spec.ChannelX, spec.ChannelY, spec.ChannelX2
	}
	valueDef := u.Encoding.Get(valueCh)
	if valueDef == nil || valueDef.IsConstant() || valueDef.Type != spec.Quantitative {
		return nil
	}
	if u.Encoding.Get(boundCh) != nil {
		// 显式的 x2/y2 已经给出区间
		return nil
	}
	catDef := u.Encoding.Get(catCh)
	res.ValueChannel, res.CategoryChannel = valueCh, catCh

	rank, slots, err := groupRank(res.Rows, u, groupCh, groupDef, scales.For(u, groupCh))
	if err != nil {
		return err
	}
	for i := range res.Rows {
		if v, ok := Value(res.Rows[i].Datum, catDef); ok {
			res.Rows[i].Key = scale.Key(v)
		} else if catDef.HasField() {
			return spec.DataErrorf(spec.CodeMissingField, u.ChannelPath(catCh)+".field",
				"记录缺少字段 %q（通道 %s）", catDef.Field, catCh)
		}
	}

	if !u.Stack.Enabled {
		if u.Mark.Type != spec.MarkBar {
			return nil
		}
		res.Dodged = true
		res.Slots = slots
		for i := range res.Rows {
			res.Rows[i].Slot = rank[i]
		}
		return nil
	}

	values := make([]float64, len(res.Rows))
	for i, r := range res.Rows {
		v, ok := Value(r.Datum, valueDef)
		if !ok {
			return spec.DataErrorf(spec.CodeMissingField, u.ChannelPath(valueCh)+".field",
				"记录缺少字段 %q（通道 %s）", FieldOf(valueDef), valueCh)
		}
		if v == nil {
			continue
		}
		f, ok := scale.ToNumber(v)
		if !ok {
			return spec.DataErrorf(spec.CodeTypeMismatch, u.ChannelPath(valueCh)+".field",
				"字段 %q 的值 %q 不是数值", FieldOf(valueDef), binding.Format(v))
		}
		values[i] = f
	}

	res.Stacked = true
	res.Mode = u.Stack.Mode
	if res.Mode == "" {
		res.Mode = spec.StackZero
	}

	// 按类别首次出现顺序分桶，桶内按分组域顺序累加
	idx := make([]int, len(res.Rows))
	for i := range idx {
		idx[i] = i
	}
	catOrder := map[string]int{}
	for _, r := range res.Rows {
		if _, ok := catOrder[r.Key]; !ok {
			catOrder[r.Key] = len(catOrder)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := res.Rows[idx[a]], res.Rows[idx[b]]
		if ca, cb := catOrder[ra.Key], catOrder[rb.Key]; ca != cb {
			return ca < cb
		}
		return rank[idx[a]] < rank[idx[b]]
	})

	ordered := make([]Row, 0, len(res.Rows))
	for start := 0; start < len(idx); {
		end := start
		for end < len(idx) && res.Rows[idx[end]].Key == res.Rows[idx[start]].Key {
			end++
		}
		bucket := idx[start:end]
		var total float64
		for _, i := range bucket {
			total += values[i]
		}
		offset := 0.0
		if res.Mode == spec.StackCenter {
			offset = -total / 2
		}
		acc := 0.0
		for _, i := range bucket {
			r := res.Rows[i]
			v := values[i]
			if res.Mode == spec.StackNormalize && total != 0 {
				v /= total
			}
			r.Start = offset + acc
			acc += v
			r.End = offset + acc
			ordered = append(ordered, r)
		}
		start = end
	}
	res.Rows = ordered
	return nil
}

// groupRank 返回每条记录在分组域中的序号与分组数。分组比例尺为类别时使用其冻结域，否则按首次出现顺序。
func groupRank(rows []Row, u *spec.Unit, ch spec.Channel, def *spec.ChannelDef, s *scale.Scale) ([]int, int, error) {
	rank := make([]int, len(rows))
	firstSeen := map[string]int{}
	categorical := s != nil && s.Type.Categorical() && s.Frozen()
	for i, r := range rows {
		v, ok := binding.Lookup(r.Datum, def.Field)
		if !ok {
			return nil, 0, spec.DataErrorf(spec.CodeMissingField, u.ChannelPath(ch)+".field",
				"记录缺少字段 %q（通道 %s）", def.Field, ch)
		}
		if categorical {
			if j, ok := s.Domain().Index(v); ok {
				rank[i] = j
				continue
			}
		}
		k := scale.Key(v)
		j, ok := firstSeen[k]
		if !ok {
			j = len(firstSeen)
			firstSeen[k] = j
		}
		rank[i] = j
	}
	if categorical {
		return rank, s.Domain().Len(), nil
	}
	return rank, len(firstSeen), nil
}
