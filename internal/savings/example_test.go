package savings_test

import (
	"fmt"
	"io"
	"log/slog"

	"lifecyclecli/internal/savings"
)

func ExampleComputeSavingRate() {
	rule := savings.PolicyFunc(func(m float64) float64 { return 0.9 })

	rates := savings.ComputeSavingRate([]float64{1.0}, 1.03, rule)
	fmt.Printf("%.4f\n", rates[0])
	// Output: 0.1000
}

func ExampleComputeLogAssetGrowth() {
	growth, _ := savings.ComputeLogAssetGrowth([]float64{0.0, 2.0}, []float64{1.0, 4.0})
	fmt.Printf("%v %.4f\n", savings.IsFinite(growth[0]), growth[1])
	// Output: false 0.6931
}

func ExampleBuildCollation() {
	history := savings.History{
		{ANrm: savings.Series{1, 2}, PLvl: savings.Series{1, 1}, MNrm: savings.Series{2, 3}, CNrm: savings.Series{1.4, 1.9}, TranShk: savings.Series{1, 1}},
		{ANrm: savings.Series{2, 2}, PLvl: savings.Series{1, 2}, MNrm: savings.Series{3, 3}, CNrm: savings.Series{1.9, 1.9}, TranShk: savings.Series{0.8, 1.2}},
	}
	rules := savings.Rules{savings.PolicyFunc(func(m float64) float64 { return 0.5*m + 0.4 })}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	collation, err := savings.BuildCollation(history, 1.03, rules, savings.WithLogger(quiet))
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, r := range collation.Records {
		fmt.Printf("period %d growth %.4f %.4f\n", r.Period, r.Growth[0], r.Growth[1])
	}
	// Output: period 1 growth 0.6931 0.6931
}
