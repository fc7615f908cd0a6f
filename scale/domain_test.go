package scale

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ByLCY/vellum/spec"
)

func TestToNumberRejectsNonFinite(t *testing.T) {
	for _, v := range []any{"inf", "+Inf", "-inf", "NaN", math.Inf(1), math.NaN(), float32(math.Inf(-1))} {
		_, ok := ToNumber(v)
		assert.False(t, ok, "%v should not be numeric", v)
	}
	f, ok := ToNumber(" 2.5 ")
	require.True(t, ok)
	assert.Equal(t, 2.5, f)
}

func TestNonFiniteValueIsTypeMismatch(t *testing.T) {
	u := barUnit(spec.Nominal)
	b := Binding{Unit: u, Channel: spec.ChannelY, Def: u.Encoding[spec.ChannelY]}
	for _, v := range []any{"inf", "NaN", math.Inf(-1)} {
		s := New("y", spec.Quantitative, nil)
		err := TrainRows(s, []Binding{b}, []spec.Row{{"category": "a", "value": 1.0}, {"category": "b", "value": v}})
		require.Error(t, err, "%v", v)
		assert.True(t, errors.Is(err, spec.ErrData))
		assert.True(t, spec.HasCode(err, spec.CodeTypeMismatch))
	}
}
