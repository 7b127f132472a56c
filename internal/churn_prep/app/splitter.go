package app

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/aradsms/telco_churn_prep/internal/churn_prep/domain"
)

// LabelFunc returns the stratification class of a row.
type LabelFunc func(*domain.PreparedCustomer) string

// ChurnLabel stratifies on the raw churn value.
func ChurnLabel(p *domain.PreparedCustomer) string { return p.Churn }

// StratifiedSplit partitions rows into train, validate and test. Test is carved
// out first at cfg.TestFraction; validate is then cfg.ValidateFraction of what
// remains. Each class keeps its share in every partition, and every class
// must be able to place at least one row in each of them. The result depends
// only on rows and cfg.Seed.
func StratifiedSplit(rows []domain.PreparedCustomer, label LabelFunc, cfg domain.SplitConfig) (domain.TrainingSplit, error) {
	if len(rows) == 0 {
		return domain.TrainingSplit{}, fmt.Errorf("no rows to split: %w", domain.ErrValue)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))

	trainValidate, test, err := stratifiedPartition(rows, label, cfg.TestFraction, rng)
	if err != nil {
		return domain.TrainingSplit{}, fmt.Errorf("test split: %w", err)
	}
	train, validate, err := stratifiedPartition(trainValidate, label, cfg.ValidateFraction, rng)
	if err != nil {
		return domain.TrainingSplit{}, fmt.Errorf("validate split: %w", err)
	}
	return domain.TrainingSplit{Train: train, Validate: validate, Test: test}, nil
}

// stratifiedPartition holds out round(fraction*n) rows of every class, at least
// one and never all of them.
func stratifiedPartition(rows []domain.PreparedCustomer, label LabelFunc, fraction float64, rng *rand.Rand) (rest, held []domain.PreparedCustomer, err error) {
	groups := map[string][]int{}
	for i := range rows {
		k := label(&rows[i])
		groups[k] = append(groups[k], i)
	}
	classes := make([]string, 0, len(groups))
	for k := range groups {
		classes = append(classes, k)
	}
	sort.Strings(classes)

	for _, class := range classes {
		idx := groups[class]
		if len(idx) < 2 {
			return nil, nil, fmt.Errorf("class %q has %d member(s), need at least 2: %w", class, len(idx), domain.ErrValue)
		}
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		n := int(math.Round(fraction * float64(len(idx))))
		if n < 1 {
			n = 1
		}
		if n > len(idx)-1 {
			n = len(idx) - 1
		}
		for _, i := range idx[:n] {
			held = append(held, rows[i])
		}
		for _, i := range idx[n:] {
			rest = append(rest, rows[i])
		}
	}

	rng.Shuffle(len(held), func(i, j int) { held[i], held[j] = held[j], held[i] })
	rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	return rest, held, nil
}
