package scale

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/vellum/spec"
)

func barUnit(xType spec.DataType) *spec.Unit {
	return &spec.Unit{
		Mark: spec.MarkDef{Type: spec.MarkBar},
		Encoding: spec.Encoding{
			spec.ChannelX: {Field: "category", Type: xType},
			spec.ChannelY: {Field: "value", Type: spec.Quantitative},
		},
	}
}

func TestNiceTicks(t *testing.T) {
	assert.Equal(t, []float64{0, 10, 20, 30, 40, 50}, NiceTicks(0, 55, 5))
	assert.Equal(t, []float64{0, 20, 40, 60, 80, 100}, NiceTicks(0, 100, 5))
	assert.InDeltaSlice(t, []float64{0, 0.2, 0.4, 0.6, 0.8, 1}, NiceTicks(0, 1, 5), 1e-9)
	assert.Equal(t, []float64{-10, -5, 0, 5, 10}, NiceTicks(-12, 12, 5))
	assert.Equal(t, []float64{7}, NiceTicks(7, 7, 5))
	assert.Nil(t, NiceTicks(0, 10, 0))
}

func TestNiceStepUsesOneTwoFive(t *testing.T) {
	for _, c := range []struct {
		span float64
		want float64
	}{{55, 10}, {14, 2}, {0.3, 0.05}, {2500, 500}, {9, 2}} {
		assert.InDelta(t, c.want, NiceStep(c.span, 5), 1e-12, "span %g", c.span)
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "55", FormatNumber(55))
	assert.Equal(t, "2.50", FormatNumber(2.5))
	assert.Equal(t, "1.5K", FormatNumber(1500))
	assert.Equal(t, "2.0M", FormatNumber(2e6))
	assert.Equal(t, "-3.0K", FormatNumber(-3000))
}

func TestLinearMappingOverZeroedDomain(t *testing.T) {
	s := New("y", spec.Quantitative, nil)
	s.Zero = true
	require.NoError(t, s.Train(28.0))
	require.NoError(t, s.Train(55.0))
	require.NoError(t, s.Freeze())

	lo, hi := s.Extent()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 55.0, hi)

	m := s.Range(200, 0)
	y28, err := m.Map(28.0)
	require.NoError(t, err)
	y55, err := m.Map(55.0)
	require.NoError(t, err)
	assert.InDelta(t, 28.0/55.0, (200-y28)/(200-y55), 1e-9)
	assert.Equal(t, 0.0, y55)
	assert.Equal(t, 0.0, m.Bandwidth())
}

func TestDegenerateContinuousDomainMapsToMidpoint(t *testing.T) {
	s := New("x", spec.Quantitative, nil)
	require.NoError(t, s.Train(4.0))
	require.NoError(t, s.Freeze())
	pos, err := s.Range(0, 100).Map(4.0)
	require.NoError(t, err)
	assert.Equal(t, 50.0, pos)
}

func TestEmptyDomainIsScaleError(t *testing.T) {
	s := New("y", spec.Quantitative, nil)
	err := s.Freeze()
	require.Error(t, err)
	assert.True(t, errors.Is(err, spec.ErrScale))
	assert.True(t, spec.HasCode(err, spec.CodeDegenerateDomain))
}

func TestFrozenDomainRejectsTraining(t *testing.T) {
	s := New("x", spec.Nominal, nil)
	require.NoError(t, s.Train("A"))
	require.NoError(t, s.Freeze())
	err := s.Train("B")
	require.Error(t, err)
	b := Binding{Unit: barUnit(spec.Nominal), Channel: spec.ChannelX, Def: &spec.ChannelDef{Field: "category"}}
	assert.True(t, spec.HasCode(TrainError(s, b, "B", err), spec.CodeFrozenDomain))
	assert.Equal(t, 1, s.Domain().Len())
}

func TestBandMapping(t *testing.T) {
	s := New("x", spec.Nominal, nil)
	for _, v := range []any{"A", "B", "A", "C"} {
		require.NoError(t, s.Train(v))
	}
	require.NoError(t, s.Freeze())
	assert.Equal(t, []any{"A", "B", "C"}, s.Domain().Values())

	m := s.Range(0, 320).(*Band)
	// step = 320 / (3 + 2*0.05 - 0.1) = 320/3
	assert.InDelta(t, 320.0/3, m.Step(), 1e-9)
	assert.InDelta(t, 320.0/3*0.9, m.Bandwidth(), 1e-9)
	a, _ := m.Map("A")
	c, _ := m.Map("C")
	assert.InDelta(t, 2*m.Step(), c-a, 1e-9)

	ticks := m.Ticks(0)
	require.Len(t, ticks, 3)
	assert.Equal(t, "B", ticks[1].Label)
	assert.InDelta(t, a+m.Step()+m.Bandwidth()/2, ticks[1].Pos, 1e-9)

	_, err := m.Map("Z")
	assert.Error(t, err)

	rev := s.Range(320, 0)
	ra, _ := rev.Map("A")
	rc, _ := rev.Map("C")
	assert.Greater(t, ra, rc)
}

func TestOrdinalDomainOrder(t *testing.T) {
	declared := NewDomain(spec.Ordinal, []any{"low", "mid", "high"})
	for _, v := range []any{"high", "extra", "low", "mid"} {
		require.NoError(t, declared.Add(v))
	}
	declared.Freeze()
	assert.Equal(t, []any{"low", "mid", "high", "extra"}, declared.Values())

	natural := NewDomain(spec.Ordinal, nil)
	for _, v := range []any{3.0, 1.0, 10.0, 2.0} {
		require.NoError(t, natural.Add(v))
	}
	natural.Freeze()
	assert.Equal(t, []any{1.0, 2.0, 3.0, 10.0}, natural.Values())
	i, ok := natural.Index(10.0)
	assert.True(t, ok)
	assert.Equal(t, 3, i)
}

func TestTemporalTicks(t *testing.T) {
	s := New("x", spec.Temporal, nil)
	for _, v := range []any{"2024-01-01", "2024-12-31"} {
		require.NoError(t, s.Train(v))
	}
	require.NoError(t, s.Freeze())
	ticks := s.Range(0, 500).Ticks(5)
	require.NotEmpty(t, ticks)
	assert.Equal(t, "2024-01", ticks[0].Label)
	assert.Equal(t, 0.0, ticks[0].Pos)
	for i := 1; i < len(ticks); i++ {
		assert.Greater(t, ticks[i].Pos, ticks[i-1].Pos)
	}

	unit, step := ChooseTimeUnit(10*24*time.Hour, 5)
	assert.Equal(t, UnitDay, unit)
	assert.Equal(t, 2, step)
	unit, _ = ChooseTimeUnit(20*365*24*time.Hour, 5)
	assert.Equal(t, UnitYear, unit)

	err := s.Train("yesterday")
	require.Error(t, err)
}

func TestTemporalTypeMismatch(t *testing.T) {
	u := &spec.Unit{Mark: spec.MarkDef{Type: spec.MarkLine}, Encoding: spec.Encoding{
		spec.ChannelX: {Field: "d", Type: spec.Temporal},
	}}
	b := Binding{Unit: u, Channel: spec.ChannelX, Def: u.Encoding[spec.ChannelX]}
	s := New("x", spec.Temporal, nil)
	err := TrainRows(s, []Binding{b}, []spec.Row{{"d": "not a date"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, spec.ErrData))
	assert.True(t, spec.HasCode(err, spec.CodeTypeMismatch))
	e, _ := spec.AsError(err)
	assert.Equal(t, "encoding.x.field", e.Path)
}

func TestResolverSharesNamedScales(t *testing.T) {
	a := barUnit(spec.Nominal)
	b := &spec.Unit{Index: 1, Path: "layer[1]", Mark: spec.MarkDef{Type: spec.MarkRule}, Encoding: spec.Encoding{
		spec.ChannelY: {Field: "target", Type: spec.Quantitative},
	}}
	r := NewResolver()
	require.NoError(t, r.BindUnit(a))
	require.NoError(t, r.BindUnit(b))
	assert.Equal(t, []string{"x", "y"}, r.Names())
	assert.Len(t, r.Bindings("y"), 2)
	assert.True(t, r.Prototype("y").Zero)
	assert.Equal(t, 0.2, r.Prototype("x").Padding)
	assert.Equal(t, "category", r.Prototype("x").Title)
}

func TestResolverConflictingClassification(t *testing.T) {
	a := barUnit(spec.Nominal)
	b := &spec.Unit{Path: "layer[1]", Mark: spec.MarkDef{Type: spec.MarkPoint}, Encoding: spec.Encoding{
		spec.ChannelX: {Field: "when", Type: spec.Temporal},
	}}
	r := NewResolver()
	require.NoError(t, r.BindUnit(a))
	err := r.BindUnit(b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, spec.ErrSpec))
	assert.True(t, spec.HasCode(err, spec.CodeConflictingScale))
	e, _ := spec.AsError(err)
	assert.Equal(t, "layer[1].encoding.x", e.Path)
}

func TestResolveSharedIgnoresPartitionOrder(t *testing.T) {
	u := barUnit(spec.Nominal)
	bindings := []Binding{{Unit: u, Channel: spec.ChannelX, Def: u.Encoding[spec.ChannelX]}}
	north := Partition{Rows: []spec.Row{{"category": "B"}, {"category": "A"}}, Index: []int{1, 2}}
	south := Partition{Rows: []spec.Row{{"category": "C"}, {"category": "A"}}, Index: []int{0, 3}}

	s1, err := Resolve("x", bindings, []Partition{north, south}, spec.ResolveShared, 0)
	require.NoError(t, err)
	s2, err := Resolve("x", bindings, []Partition{south, north}, spec.ResolveShared, 0)
	require.NoError(t, err)
	assert.Equal(t, []any{"C", "B", "A"}, s1.Domain().Values())
	assert.Equal(t, s1.Domain().Values(), s2.Domain().Values())
	assert.True(t, s1.Frozen())

	own, err := Resolve("x", bindings, []Partition{north, south}, spec.ResolveIndependent, 1)
	require.NoError(t, err)
	assert.Equal(t, []any{"C", "A"}, own.Domain().Values())
}

func TestResolveMissingField(t *testing.T) {
	u := barUnit(spec.Nominal)
	bindings := []Binding{{Unit: u, Channel: spec.ChannelX, Def: u.Encoding[spec.ChannelX]}}
	_, err := Resolve("x", bindings, []Partition{{Rows: []spec.Row{{"cat": "A"}}}}, spec.ResolveShared, 0)
	require.Error(t, err)
	assert.True(t, spec.HasCode(err, spec.CodeMissingField))
	assert.Contains(t, err.Error(), "category")
}
