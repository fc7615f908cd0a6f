package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/vellum/scale"
	"github.com/ByLCY/vellum/spec"
)

func stackedUnit(mode spec.StackMode, enabled bool) *spec.Unit {
	return &spec.Unit{
		Mark: spec.MarkDef{Type: spec.MarkBar},
		Encoding: spec.Encoding{
			spec.ChannelX:     {Field: "month", Type: spec.Nominal},
			spec.ChannelY:     {Field: "value", Type: spec.Quantitative},
			spec.ChannelColor: {Field: "kind", Type: spec.Nominal},
		},
		Stack: spec.StackConfig{Enabled: enabled, Mode: mode},
	}
}

func groupScale(t *testing.T, order ...string) scale.Set {
	t.Helper()
	s := scale.New("color", spec.Nominal, nil)
	for _, v := range order {
		require.NoError(t, s.Train(v))
	}
	require.NoError(t, s.Freeze())
	return scale.Set{"color": s}
}

var stackRows = []spec.Row{
	{"month": "Jan", "kind": "b", "value": 3.0},
	{"month": "Jan", "kind": "a", "value": 1.0},
	{"month": "Feb", "kind": "a", "value": 2.0},
	{"month": "Feb", "kind": "b", "value": 6.0},
}

func TestStackZeroFollowsGroupingDomain(t *testing.T) {
	res, err := Apply(stackRows, stackedUnit(spec.StackZero, true), groupScale(t, "a", "b"))
	require.NoError(t, err)
	require.True(t, res.Stacked)
	assert.Equal(t, spec.ChannelY, res.ValueChannel)
	require.Len(t, res.Rows, 4)

	// Jan: a 先于 b
	assert.Equal(t, "a", res.Rows[0].Datum["kind"])
	assert.Equal(t, [2]float64{0, 1}, [2]float64{res.Rows[0].Start, res.Rows[0].End})
	assert.Equal(t, [2]float64{1, 4}, [2]float64{res.Rows[1].Start, res.Rows[1].End})
	assert.Equal(t, "Feb", res.Rows[2].Key)
	assert.Equal(t, 8.0, res.Rows[3].End)

	// 源记录按引用保留
	assert.Equal(t, stackRows[1]["kind"], res.Rows[0].Datum["kind"])
	res.Rows[0].Datum["probe"] = true
	assert.Equal(t, true, stackRows[1]["probe"])
	delete(stackRows[1], "probe")
}

func TestStackOrderUsesDomainNotRowOrder(t *testing.T) {
	res, err := Apply(stackRows, stackedUnit(spec.StackZero, true), groupScale(t, "b", "a"))
	require.NoError(t, err)
	assert.Equal(t, "b", res.Rows[0].Datum["kind"])
	assert.Equal(t, 0.0, res.Rows[0].Start)
}

func TestStackNormalizeSumsToOne(t *testing.T) {
	res, err := Apply(stackRows, stackedUnit(spec.StackNormalize, true), groupScale(t, "a", "b"))
	require.NoError(t, err)
	sums := map[string]float64{}
	for _, r := range res.Rows {
		sums[r.Key] += r.End - r.Start
	}
	for k, sum := range sums {
		assert.InDelta(t, 1.0, sum, 1e-9, k)
	}
	assert.InDelta(t, 0.25, res.Rows[0].End, 1e-9)
}

func TestStackCenterOffsetsByHalfTotal(t *testing.T) {
	res, err := Apply(stackRows, stackedUnit(spec.StackCenter, true), groupScale(t, "a", "b"))
	require.NoError(t, err)
	totals := map[string]float64{}
	lows := map[string]float64{}
	highs := map[string]float64{}
	for _, r := range res.Rows {
		totals[r.Key] += r.End - r.Start
		if _, ok := lows[r.Key]; !ok || r.Start < lows[r.Key] {
			lows[r.Key] = r.Start
		}
		if r.End > highs[r.Key] {
			highs[r.Key] = r.End
		}
	}
	for k, total := range totals {
		assert.InDelta(t, -total/2, lows[k], 1e-9, k)
		assert.InDelta(t, 0, (lows[k]+highs[k])/2, 1e-9, k)
	}
}

func TestStackDisabledDodgesBars(t *testing.T) {
	res, err := Apply(stackRows, stackedUnit(spec.StackZero, false), groupScale(t, "a", "b"))
	require.NoError(t, err)
	assert.False(t, res.Stacked)
	assert.True(t, res.Dodged)
	assert.Equal(t, 2, res.Slots)
	assert.Equal(t, 1, res.Rows[0].Slot)
	assert.Equal(t, 0, res.Rows[1].Slot)
}

func TestStackWithoutGroupingIsNoop(t *testing.T) {
	u := stackedUnit(spec.StackNormalize, true)
	delete(u.Encoding, spec.ChannelColor)
	res, err := Apply(stackRows, u, nil)
	require.NoError(t, err)
	assert.False(t, res.Stacked)
	assert.False(t, res.Dodged)
	assert.Equal(t, -1, res.Rows[0].Slot)
}

func TestAggregateGroupsByOtherFields(t *testing.T) {
	u := &spec.Unit{
		Mark: spec.MarkDef{Type: spec.MarkBar},
		Encoding: spec.Encoding{
			spec.ChannelX: {Field: "month", Type: spec.Nominal},
			spec.ChannelY: {Field: "value", Type: spec.Quantitative, Aggregate: spec.AggMean},
		},
		Stack: spec.DefaultStack,
	}
	rows := []spec.Row{
		{"month": "Feb", "value": 4.0},
		{"month": "Jan", "value": 1.0},
		{"month": "Feb", "value": 8.0},
		{"month": "Jan", "value": nil},
	}
	out, err := Aggregate(rows, u)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Feb", out[0]["month"])
	assert.Equal(t, 6.0, out[0]["value"])
	assert.Equal(t, 1.0, out[1]["value"])
}

func TestAggregateFunctions(t *testing.T) {
	rows := []spec.Row{
		{"g": "x", "v": 4.0, "c": "p"},
		{"g": "x", "v": 1.0, "c": "q"},
		{"g": "x", "v": 7.0, "c": "p"},
		{"g": "x", "v": 2.0, "c": nil},
	}
	for _, c := range []struct {
		agg  spec.Aggregate
		fld  string
		want float64
	}{
		{spec.AggSum, "v", 14},
		{spec.AggMean, "v", 3.5},
		{spec.AggMedian, "v", 3},
		{spec.AggMin, "v", 1},
		{spec.AggMax, "v", 7},
		{spec.AggCount, "c", 3},
		{spec.AggDistinct, "c", 2},
		{spec.AggCount, "", 4},
	} {
		def := &spec.ChannelDef{Field: c.fld, Type: spec.Quantitative, Aggregate: c.agg}
		u := &spec.Unit{Mark: spec.MarkDef{Type: spec.MarkBar}, Encoding: spec.Encoding{
			spec.ChannelX: {Field: "g", Type: spec.Nominal},
			spec.ChannelY: def,
		}}
		out, err := Aggregate(rows, u)
		require.NoError(t, err, c.agg)
		require.Len(t, out, 1)
		v, ok := Value(out[0], def)
		require.True(t, ok, c.agg)
		assert.InDelta(t, c.want, v, 1e-9, "%s(%s)", c.agg, c.fld)
	}
}

func TestAggregateMissingGroupField(t *testing.T) {
	u := &spec.Unit{Mark: spec.MarkDef{Type: spec.MarkBar}, Encoding: spec.Encoding{
		spec.ChannelX: {Field: "month", Type: spec.Nominal},
		spec.ChannelY: {Field: "value", Type: spec.Quantitative, Aggregate: spec.AggSum},
	}}
	_, err := Aggregate([]spec.Row{{"value": 1.0}}, u)
	require.Error(t, err)
	assert.True(t, spec.HasCode(err, spec.CodeMissingField))
	e, _ := spec.AsError(err)
	assert.Equal(t, "encoding.x.field", e.Path)
}

func TestTrainUsesStackedExtent(t *testing.T) {
	u := stackedUnit(spec.StackZero, true)
	res, err := Apply(stackRows, u, groupScale(t, "a", "b"))
	require.NoError(t, err)
	y := scale.New("y", spec.Quantitative, nil)
	b := scale.Binding{Unit: u, Channel: spec.ChannelY, Def: u.Encoding[spec.ChannelY]}
	require.NoError(t, res.Train(y, b))
	require.NoError(t, y.Freeze())
	lo, hi := y.Extent()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 8.0, hi)
}
