package agenttype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "lifecyclecli/internal/errors"
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()

	require.NoError(t, p.Validate())
	assert.Equal(t, 2.0, p.CRRA)
	assert.Equal(t, 1.03, p.Rfree)
	assert.Equal(t, 10000, p.AgentCount)
	assert.Equal(t, 200, p.TSim)
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"zero risk aversion", func(p *Params) { p.CRRA = 0 }},
		{"survival above one", func(p *Params) { p.LivPrb = 1.5 }},
		{"negative shock std", func(p *Params) { p.TranShkStd = -0.1 }},
		{"no agents", func(p *Params) { p.AgentCount = 0 }},
		{"single simulated period", func(p *Params) { p.TSim = 1 }},
		{"non-positive return", func(p *Params) { p.Rfree = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)

			err := p.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
		})
	}

	t.Run("mutating a copy leaves defaults intact", func(t *testing.T) {
		p := DefaultParams()
		p.CRRA = 5
		assert.Equal(t, 2.0, DefaultParams().CRRA)
	})
}

func TestParamsEqual(t *testing.T) {
	a := DefaultParams()
	b := a
	b.DiscFac += 1e-12
	assert.True(t, a.Equal(b, 1e-9))

	b.DiscFac = 0.9
	assert.False(t, a.Equal(b, 1e-9))

	c := a
	c.AgentCount = 5
	assert.False(t, a.Equal(c, 1e-9))

	d := a
	d.TSim = 10
	assert.True(t, a.Equal(d, 1e-9), "simulation length is not part of the model")
}

func TestParamsSetField(t *testing.T) {
	var p Params
	for _, f := range DefaultParams().fields() {
		require.NoError(t, p.setField(f.name, f.value))
	}
	assert.Equal(t, DefaultParams(), p)
	assert.Error(t, p.setField("Unknown", 1))
}
