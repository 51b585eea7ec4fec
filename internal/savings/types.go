package savings

import (
	"encoding/json"
	"fmt"
	"math"

	apperrors "lifecyclecli/internal/errors"
)

// Tracked simulation variables the pipeline reads from every snapshot.
const (
	VarANrm    = "aNrm"
	VarPLvl    = "pLvl"
	VarMNrm    = "mNrm"
	VarCNrm    = "cNrm"
	VarTranShk = "TranShk"
)

// TrackedVars lists the variables a simulation must record for BuildCollation.
var TrackedVars = []string{VarANrm, VarPLvl, VarMNrm, VarCNrm, VarTranShk}

// Series is a per-agent sequence of values. Non-finite entries are legal and
// are encoded as JSON null.
type Series []float64

// MarshalJSON writes NaN and ±Inf as null
func (s Series) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	out := make([]*float64, len(s))
	for i := range s {
		if math.IsNaN(s[i]) || math.IsInf(s[i], 0) {
			continue
		}
		v := s[i]
		out[i] = &v
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads null entries back as NaN
func (s *Series) UnmarshalJSON(data []byte) error {
	var raw []*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}
	out := make(Series, len(raw))
	for i, v := range raw {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*s = out
	return nil
}

// Snapshot is the simulated population at one period. All series share the
// population length and are never modified after construction.
type Snapshot struct {
	ANrm    Series `json:"aNrm"`    // normalized assets
	PLvl    Series `json:"pLvl"`    // permanent income level
	MNrm    Series `json:"mNrm"`    // normalized market resources
	CNrm    Series `json:"cNrm"`    // normalized consumption
	TranShk Series `json:"TranShk"` // transitory income shock
}

// Len returns the population size of the snapshot
func (s Snapshot) Len() int {
	return len(s.ANrm)
}

// History is a period-indexed sequence of snapshots, periods 0..T.
type History []Snapshot

// Periods returns the number of recorded periods (T+1)
func (h History) Periods() int {
	return len(h)
}

// PolicyFunction maps normalized market resources to normalized consumption.
type PolicyFunction interface {
	Consumption(m float64) float64
}

// PolicyFunc adapts an ordinary function to PolicyFunction.
type PolicyFunc func(m float64) float64

// Consumption calls f(m)
func (f PolicyFunc) Consumption(m float64) float64 {
	return f(m)
}

// PolicySet exposes the period-indexed consumption rules of a solved model.
type PolicySet interface {
	Rule(period int) (PolicyFunction, error)
	Len() int
}

// Rules is a slice-backed PolicySet.
type Rules []PolicyFunction

// Rule returns the consumption rule for the given period
func (r Rules) Rule(period int) (PolicyFunction, error) {
	if period < 0 || period >= len(r) {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("no consumption rule for period %d (have %d)", period, len(r))).
			WithContext("period", period)
	}
	if r[period] == nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("consumption rule for period %d is nil", period))
	}
	return r[period], nil
}

// Len returns the number of rules
func (r Rules) Len() int {
	return len(r)
}

// Record is one row of the collation table.
type Record struct {
	Period      int    `json:"period"`
	ANrm        Series `json:"aNrm"`
	CNrm        Series `json:"cNrm"`
	TranShk     Series `json:"TranShk"`
	PrevTranShk Series `json:"prevTranShk"`
	Growth      Series `json:"growth"`     // log(aLvl[t]/aLvl[t-1])
	SavingRate  Series `json:"savingRate"` // saving / income
}

// Collation is the ordered per-period table built from a population history.
// It is read-only once returned by BuildCollation.
type Collation struct {
	RiskFree        float64  `json:"riskFree"`
	ReferencePeriod int      `json:"referencePeriod"` // -1 when each period uses its own rule
	Agents          int      `json:"agents"`
	Records         []Record `json:"records"`
}

// Len returns the number of records
func (c *Collation) Len() int {
	return len(c.Records)
}

// Record returns the record for simulation period t (t >= 1)
func (c *Collation) Record(period int) (Record, bool) {
	idx := period - 1
	if idx < 0 || idx >= len(c.Records) {
		return Record{}, false
	}
	return c.Records[idx], true
}
