package spec

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const barJSON = `{
  "data": {"values": [{"category": "A", "value": 28}, {"category": "B", "value": 55}]},
  "mark": "bar",
  "encoding": {
    "x": {"field": "category", "type": "nominal"},
    "y": {"field": "value", "type": "quantitative"}
  }
}`

func TestParseJSONShorthandAndDefaults(t *testing.T) {
	s, err := ParseJSON([]byte(barJSON))
	require.NoError(t, err)
	require.NotNil(t, s.Mark)
	assert.Equal(t, MarkBar, s.Mark.Type)
	assert.Len(t, s.Data.Values, 2)

	c, err := Normalize(s)
	require.NoError(t, err)
	assert.Equal(t, DefaultWidth, c.Width)
	assert.Equal(t, DefaultHeight, c.Height)
	assert.Equal(t, DefaultPadding, c.Padding)
	require.Len(t, c.Units, 1)
	assert.Equal(t, DefaultStack, c.Units[0].Stack)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := ParseJSON([]byte(`{"data": {"values": []}, "mark": "bar", "colour": "red"}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSpec))
	assert.True(t, HasCode(err, CodeUnknownField))

	_, err = ParseJSON([]byte(`{"data": {"values": []}, "mark": "bar", "encoding": {"z": "a"}}`))
	require.Error(t, err)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "encoding.z", e.Path)

	_, err = ParseJSON([]byte(`{"data": {"values": []}, "mark": {"type": "bar", "glow": 1}}`))
	require.Error(t, err)
	assert.True(t, HasCode(err, CodeUnknownField))
}

func TestParseStackForms(t *testing.T) {
	cases := map[string]StackConfig{
		`true`:        {Enabled: true, Mode: StackZero},
		`false`:       {Enabled: false, Mode: StackZero},
		`"normalize"`: {Enabled: true, Mode: StackNormalize},
		`"center"`:    {Enabled: true, Mode: StackCenter},
	}
	for raw, want := range cases {
		s, err := ParseJSON([]byte(`{"data": {"values": []}, "mark": "bar", "stack": ` + raw + `}`))
		require.NoError(t, err, raw)
		require.NotNil(t, s.Stack)
		assert.Equal(t, want, *s.Stack, raw)
	}
	_, err := ParseJSON([]byte(`{"data": {"values": []}, "mark": "bar", "stack": "spiral"}`))
	assert.True(t, HasCode(err, CodeInvalidValue))
}

func TestParseYAMLMatchesJSON(t *testing.T) {
	doc := `
width: 300
padding: 10
data:
  values:
    - {category: A, value: 28}
    - {category: B, value: 55}
mark: {type: bar, cornerRadius: 2}
encoding:
  x: category
  y: {field: value, aggregate: sum}
`
	s, err := Parse(strings.NewReader(doc), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, 300.0, s.Width)
	require.NotNil(t, s.Padding)
	assert.Equal(t, Padding{Top: 10, Right: 10, Bottom: 10, Left: 10}, *s.Padding)
	assert.Equal(t, "category", s.Encoding[ChannelX].Field)
	assert.Equal(t, AggSum, s.Encoding[ChannelY].Aggregate)
	assert.Equal(t, 2.0, s.Mark.CornerRadius)

	c, err := Normalize(s)
	require.NoError(t, err)
	assert.Equal(t, Nominal, c.Units[0].Encoding[ChannelX].Type)
	assert.Equal(t, Quantitative, c.Units[0].Encoding[ChannelY].Type)
}

func TestPaddingPartialObjectKeepsDefaults(t *testing.T) {
	s, err := ParseJSON([]byte(`{"data": {"values": []}, "mark": "rule", "padding": {"left": 80}}`))
	require.NoError(t, err)
	want := DefaultPadding
	want.Left = 80
	assert.Equal(t, want, *s.Padding)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	s, err := ParseJSON([]byte(`{"data": {"values": [{"d": "2024-01-05", "v": 1}]}, "mark": "line",
		"encoding": {"x": "d", "y": "v"}}`))
	require.NoError(t, err)
	c, err := Normalize(s)
	require.NoError(t, err)
	assert.Equal(t, DataType(""), s.Encoding[ChannelX].Type)
	assert.Equal(t, Temporal, c.Units[0].Encoding[ChannelX].Type)
	assert.Equal(t, Quantitative, c.Units[0].Encoding[ChannelY].Type)
}

func TestNormalizeFieldValueExclusive(t *testing.T) {
	s := &Spec{
		Mark: &MarkDef{Type: MarkBar},
		Encoding: Encoding{
			ChannelX: {Field: "a", Value: "b"},
		},
	}
	_, err := Normalize(s)
	require.Error(t, err)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindSpec, e.Kind)
	assert.Equal(t, CodeFieldValueExclusive, e.Code)
	assert.Equal(t, "encoding.x", e.Path)

	s.Encoding[ChannelX] = &ChannelDef{}
	_, err = Normalize(s)
	assert.True(t, HasCode(err, CodeFieldValueExclusive))

	s.Encoding[ChannelX] = &ChannelDef{Aggregate: AggCount}
	_, err = Normalize(s)
	assert.NoError(t, err)
}

func TestNormalizeUnsupportedMark(t *testing.T) {
	_, err := Normalize(&Spec{Mark: &MarkDef{Type: "sankey"}, Encoding: Encoding{ChannelX: {Field: "a"}}})
	assert.True(t, HasCode(err, CodeUnsupportedMark))
	assert.True(t, errors.Is(err, ErrSpec))
}

func TestLayerInheritsTopLevelEncoding(t *testing.T) {
	s := &Spec{
		Encoding: Encoding{
			ChannelX: {Field: "k", Type: Nominal},
			ChannelY: {Field: "v", Type: Quantitative},
		},
		Stack: &StackConfig{Enabled: true, Mode: StackNormalize},
		Layer: []Layer{
			{Mark: &MarkDef{Type: MarkBar}},
			{Mark: &MarkDef{Type: MarkRule}, Encoding: Encoding{ChannelY: {Value: 10.0}}, Stack: &StackConfig{}},
		},
	}
	c, err := Normalize(s)
	require.NoError(t, err)
	require.Len(t, c.Units, 2)
	assert.Equal(t, "layer[1]", c.Units[1].Path)
	assert.Equal(t, "k", c.Units[1].Encoding[ChannelX].Field)
	assert.Equal(t, 10.0, c.Units[1].Encoding[ChannelY].Value)
	assert.Equal(t, StackNormalize, c.Units[0].Stack.Mode)
	assert.False(t, c.Units[1].Stack.Enabled)
	assert.Equal(t, "layer[1].encoding.y", c.Units[1].ChannelPath(ChannelY))
}

func TestOrientation(t *testing.T) {
	unit := func(x, y DataType) *Unit {
		return &Unit{Mark: MarkDef{Type: MarkBar}, Encoding: Encoding{
			ChannelX: {Field: "x", Type: x},
			ChannelY: {Field: "y", Type: y},
		}}
	}
	o, err := unit(Nominal, Quantitative).Orient()
	require.NoError(t, err)
	assert.Equal(t, Vertical, o)

	o, err = unit(Quantitative, Ordinal).Orient()
	require.NoError(t, err)
	assert.Equal(t, Horizontal, o)

	_, err = unit(Quantitative, Temporal).Orient()
	assert.True(t, HasCode(err, CodeAmbiguousOrientation))
	_, err = unit(Nominal, Nominal).Orient()
	assert.True(t, HasCode(err, CodeAmbiguousOrientation))

	line := unit(Temporal, Quantitative)
	line.Mark.Type = MarkLine
	o, err = line.Orient()
	require.NoError(t, err)
	assert.Equal(t, Vertical, o)
}

func TestFacetNormalization(t *testing.T) {
	s := &Spec{
		Mark:     &MarkDef{Type: MarkPoint},
		Encoding: Encoding{ChannelX: {Field: "a"}},
		Facet:    &FacetSpec{Column: &FacetField{Field: "region", Sort: []any{"S", "N"}}},
	}
	c, err := Normalize(s)
	require.NoError(t, err)
	assert.Equal(t, Ordinal, c.Facet.Column.Type)
	assert.Equal(t, DefaultFacetSpacing, *c.Facet.Spacing)
	assert.Equal(t, ResolveShared, c.Facet.Resolve.Mode("y"))
	assert.Nil(t, s.Facet.Spacing)

	s.Facet.Wrap = &FacetField{Field: "b"}
	_, err = Normalize(s)
	assert.True(t, HasCode(err, CodeInvalidValue))
}

func TestInferValueType(t *testing.T) {
	assert.Equal(t, Quantitative, InferValueType(3.5))
	assert.Equal(t, Temporal, InferValueType("2024-03-01"))
	assert.Equal(t, Temporal, InferValueType("2024-03"))
	assert.Equal(t, Nominal, InferValueType("north-east"))
	assert.Equal(t, Nominal, InferValueType(true))
}
