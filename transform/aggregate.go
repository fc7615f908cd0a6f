package transform

import (
	"math"

	"github.com/aclements/go-moremath/stats"

	"github.com/ByLCY/vellum/binding"
	"github.com/ByLCY/vellum/scale"
	"github.com/ByLCY/vellum/spec"
)

type aggChannel struct {
	ch  spec.Channel
	def *spec.ChannelDef
}

type group struct {
	keys []any
	rows []spec.Row
}

// Aggregate 在声明了聚合的通道上按其余字段通道分组，每组产生一条合成记录。
// 分组按首次出现顺序排列；没有聚合通道时原样返回 rows。
func Aggregate(rows []spec.Row, u *spec.Unit) ([]spec.Row, error) {
	var aggs []aggChannel
	var fields []string
	var fieldChannels []spec.Channel
	seen := map[string]bool{}
	u.Encoding.Each(func(ch spec.Channel, def *spec.ChannelDef) {
		switch {
		case def.Aggregate != "":
			aggs = append(aggs, aggChannel{ch, def})
		case def.HasField() && !seen[def.Field]:
			seen[def.Field] = true
			fields = append(fields, def.Field)
			fieldChannels = append(fieldChannels, ch)
		}
	})
	if len(aggs) == 0 {
		return rows, nil
	}

	var order []string
	groups := map[string]*group{}
	for _, row := range rows {
		keys := make([]any, len(fields))
		for i, f := range fields {
			v, ok := binding.Lookup(row, f)
			if !ok {
				return nil, spec.DataErrorf(spec.CodeMissingField, u.ChannelPath(fieldChannels[i])+".field",
					"记录缺少分组字段 %q", f)
			}
			keys[i] = v
		}
		k := groupKey(keys)
		g, ok := groups[k]
		if !ok {
			g = &group{keys: keys}
			groups[k] = g
			order = append(order, k)
		}
		g.rows = append(g.rows, row)
	}

	out := make([]spec.Row, 0, len(order))
	for _, k := range order {
		g := groups[k]
		synth := make(spec.Row, len(fields)+len(aggs))
		for i, f := range fields {
			synth[f] = g.keys[i]
		}
		for _, a := range aggs {
			v, err := reduce(u, a, g.rows)
			if err != nil {
				return nil, err
			}
			synth[FieldOf(a.def)] = v
		}
		out = append(out, synth)
	}
	return out, nil
}

func reduce(u *spec.Unit, a aggChannel, rows []spec.Row) (any, error) {
	path := u.ChannelPath(a.ch) + ".field"
	if a.def.Field == "" {
		// 无字段的 count 统计记录数
		return float64(len(rows)), nil
	}

	var present []any
	for _, row := range rows {
		v, ok := binding.Lookup(row, a.def.Field)
		if !ok {
			return nil, spec.DataErrorf(spec.CodeMissingField, path, "记录缺少字段 %q（通道 %s）", a.def.Field, a.ch)
		}
		if v != nil {
			present = append(present, v)
		}
	}

	switch a.def.Aggregate {
	case spec.AggCount:
		return float64(len(present)), nil
	case spec.AggDistinct:
		distinct := map[string]struct{}{}
		for _, v := range present {
			distinct[scale.Key(v)] = struct{}{}
		}
		return float64(len(distinct)), nil
	}

	xs := make([]float64, 0, len(present))
	for _, v := range present {
		f, ok := scale.ToNumber(v)
		if !ok {
			return nil, spec.DataErrorf(spec.CodeTypeMismatch, path,
				"字段 %q 的值 %q 无法参与 %s 聚合", a.def.Field, binding.Format(v), a.def.Aggregate)
		}
		xs = append(xs, f)
	}
	if len(xs) == 0 {
		return nil, nil
	}
	sample := stats.Sample{Xs: xs}
	var out float64
	switch a.def.Aggregate {
	case spec.AggSum:
		out = sample.Sum()
	case spec.AggMean:
		out = sample.Mean()
	case spec.AggMedian:
		out = sample.Quantile(0.5)
	case spec.AggMin:
		out, _ = sample.Bounds()
	case spec.AggMax:
		_, out = sample.Bounds()
	}
	if math.IsNaN(out) {
		return nil, nil
	}
	return out, nil
}
