package domain

// SplitConfig controls the two-stage stratified split.
type SplitConfig struct {
	TestFraction     float64
	ValidateFraction float64 // fraction of the train+validate remainder
	Seed             int64
}

// DefaultSplitConfig mirrors the split used when the churn models were first trained.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{TestFraction: 0.2, ValidateFraction: 0.2, Seed: 123}
}

// TrainingSplit holds the three partitions produced for model training.
type TrainingSplit struct {
	Train    []PreparedCustomer
	Validate []PreparedCustomer
	Test     []PreparedCustomer
}

// TransformReport summarises what a transform dropped or could not map.
type TransformReport struct {
	InputRows         int
	DroppedZeroTenure int
	OutputRows        int
	Unmapped          map[string]int // column name -> count of values outside its category set
}
