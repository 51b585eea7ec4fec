package agenttype

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	apperrors "lifecyclecli/internal/errors"
)

// Params is the full scalar configuration of a life-cycle consumer type.
// It is a value: copy it, never share a pointer to mutate it.
type Params struct {
	CRRA         float64 `yaml:"crra" json:"crra" envconfig:"CRRA" validate:"gt=0"`
	DiscFac      float64 `yaml:"disc_fac" json:"discFac" envconfig:"DISC_FAC" validate:"gt=0"`
	PermGroFac   float64 `yaml:"perm_gro_fac" json:"permGroFac" envconfig:"PERM_GRO_FAC" validate:"gt=0"`
	Rfree        float64 `yaml:"rfree" json:"rfree" envconfig:"RFREE" validate:"gt=0"`
	LivPrb       float64 `yaml:"liv_prb" json:"livPrb" envconfig:"LIV_PRB" validate:"gt=0,lte=1"`
	PermShkStd   float64 `yaml:"perm_shk_std" json:"permShkStd" envconfig:"PERM_SHK_STD" validate:"gte=0"`
	TranShkStd   float64 `yaml:"tran_shk_std" json:"tranShkStd" envconfig:"TRAN_SHK_STD" validate:"gte=0"`
	ANrmInitMean float64 `yaml:"anrm_init_mean" json:"aNrmInitMean" envconfig:"ANRM_INIT_MEAN"`
	ANrmInitStd  float64 `yaml:"anrm_init_std" json:"aNrmInitStd" envconfig:"ANRM_INIT_STD" validate:"gte=0"`
	PLvlInitMean float64 `yaml:"plvl_init_mean" json:"pLvlInitMean" envconfig:"PLVL_INIT_MEAN"`
	PLvlInitStd  float64 `yaml:"plvl_init_std" json:"pLvlInitStd" envconfig:"PLVL_INIT_STD" validate:"gte=0"`
	AgentCount   int     `yaml:"agent_count" json:"agentCount" envconfig:"AGENT_COUNT" validate:"min=1"`
	TCycle       int     `yaml:"t_cycle" json:"tCycle" envconfig:"T_CYCLE" validate:"min=1"`
	TSim         int     `yaml:"t_sim" json:"tSim" envconfig:"T_SIM" validate:"min=2"`
}

// DefaultParams returns the parameterisation used by the saving-rate exercise.
func DefaultParams() Params {
	return Params{
		CRRA:         2.0,
		DiscFac:      0.96,
		PermGroFac:   1.01,
		Rfree:        1.03,
		LivPrb:       0.98,
		PermShkStd:   0.1,
		TranShkStd:   0.1,
		ANrmInitMean: 0.0,
		ANrmInitStd:  1.0,
		PLvlInitMean: 0.0,
		PLvlInitStd:  0.0,
		AgentCount:   10000,
		TCycle:       1,
		TSim:         200,
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func paramsValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// Validate reports out-of-domain parameters as a configuration error.
func (p Params) Validate() error {
	err := paramsValidator().Struct(p)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewConfigError("validate model parameters", err)
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fmt.Sprintf("%s must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
	}
	return apperrors.NewConfigError("invalid model parameters", errors.New(strings.Join(fields, "; "))).
		WithContext("fields", len(fields))
}

// Equal reports whether two parameterisations agree within tol on every
// real-valued field and exactly on the integer ones.
func (p Params) Equal(o Params, tol float64) bool {
	near := func(a, b float64) bool {
		d := a - b
		return d <= tol && d >= -tol
	}
	return near(p.CRRA, o.CRRA) &&
		near(p.DiscFac, o.DiscFac) &&
		near(p.PermGroFac, o.PermGroFac) &&
		near(p.Rfree, o.Rfree) &&
		near(p.LivPrb, o.LivPrb) &&
		near(p.PermShkStd, o.PermShkStd) &&
		near(p.TranShkStd, o.TranShkStd) &&
		near(p.ANrmInitMean, o.ANrmInitMean) &&
		near(p.ANrmInitStd, o.ANrmInitStd) &&
		near(p.PLvlInitMean, o.PLvlInitMean) &&
		near(p.PLvlInitStd, o.PLvlInitStd) &&
		p.AgentCount == o.AgentCount &&
		p.TCycle == o.TCycle
}

// fields lists parameter names in workbook order.
func (p Params) fields() []paramField {
	return []paramField{
		{"CRRA", p.CRRA},
		{"DiscFac", p.DiscFac},
		{"PermGroFac", p.PermGroFac},
		{"Rfree", p.Rfree},
		{"LivPrb", p.LivPrb},
		{"PermShkStd", p.PermShkStd},
		{"TranShkStd", p.TranShkStd},
		{"aNrmInitMean", p.ANrmInitMean},
		{"aNrmInitStd", p.ANrmInitStd},
		{"pLvlInitMean", p.PLvlInitMean},
		{"pLvlInitStd", p.PLvlInitStd},
		{"AgentCount", float64(p.AgentCount)},
		{"T_cycle", float64(p.TCycle)},
		{"T_sim", float64(p.TSim)},
	}
}

type paramField struct {
	name  string
	value float64
}

// setField assigns a named parameter read back from a workbook.
func (p *Params) setField(name string, v float64) error {
	switch name {
	case "CRRA":
		p.CRRA = v
	case "DiscFac":
		p.DiscFac = v
	case "PermGroFac":
		p.PermGroFac = v
	case "Rfree":
		p.Rfree = v
	case "LivPrb":
		p.LivPrb = v
	case "PermShkStd":
		p.PermShkStd = v
	case "TranShkStd":
		p.TranShkStd = v
	case "aNrmInitMean":
		p.ANrmInitMean = v
	case "aNrmInitStd":
		p.ANrmInitStd = v
	case "pLvlInitMean":
		p.PLvlInitMean = v
	case "pLvlInitStd":
		p.PLvlInitStd = v
	case "AgentCount":
		p.AgentCount = int(v)
	case "T_cycle":
		p.TCycle = int(v)
	case "T_sim":
		p.TSim = int(v)
	default:
		return fmt.Errorf("unknown parameter %q", name)
	}
	return nil
}
