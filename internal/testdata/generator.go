package testdata

import (
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/jask/slipbook/internal/slip"
)

// Generator produces deterministic sample slips for tests and demos.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator seeds a generator; the same seed yields the same slips.
func NewGenerator(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

func (g *Generator) month() string {
	return fmt.Sprintf("%02d/%d", g.rng.Intn(12)+1, 2020+g.rng.Intn(6))
}

func (g *Generator) amount(limit int) decimal.Decimal {
	// two decimal places
	return decimal.New(int64(g.rng.Intn(limit*100)), -2)
}

func (g *Generator) rating() slip.Rating {
	return slip.Ratings[g.rng.Intn(len(slip.Ratings))]
}

// leaveDays returns zero about a third of the time so both branches of the
// leave rule get exercised.
func (g *Generator) leaveDays() int {
	if g.rng.Intn(3) == 0 {
		return 0
	}
	return g.rng.Intn(6) + 1
}

// Incentive returns a valid incentive slip.
func (g *Generator) Incentive() slip.Incentive {
	return slip.Incentive{
		Month:                g.month(),
		Points:               decimal.NewFromInt(int64(g.rng.Intn(120))),
		Rating:               g.rating(),
		RegularLeaveDays:     g.leaveDays(),
		SickLeaveDays:        g.leaveDays(),
		RewardsAmount:        g.amount(500),
		TotalIncentiveAmount: g.amount(5000),
	}
}

// Salary returns a valid salary slip.
func (g *Generator) Salary() slip.Salary {
	return slip.Salary{
		Month:             g.month(),
		TotalSalaryAmount: g.amount(20000),
		BonusAmount:       g.amount(1000),
	}
}

// Profits returns a valid profits slip.
func (g *Generator) Profits() slip.Profits {
	period := slip.PeriodH1
	if g.rng.Intn(2) == 1 {
		period = slip.PeriodH2
	}
	return slip.Profits{
		Year:               2020 + g.rng.Intn(6),
		Period:             period,
		Points:             decimal.NewFromInt(int64(g.rng.Intn(120))),
		Rating:             g.rating(),
		TotalProfitsAmount: g.amount(15000),
	}
}

// OpKind is a mutation in a generated sequence.
type OpKind int

const (
	OpAdd OpKind = iota
	OpUpdate
	OpDelete
)

// Op is one step of a generated mutation sequence against a collection.
// Index is only meaningful for updates and deletes and is always in range
// for the collection size at that step.
type Op struct {
	Kind      OpKind
	Index     int
	Incentive slip.Incentive
	Salary    slip.Salary
	Profits   slip.Profits
	Target    slip.Kind
}

// Ops generates n mutations over the three collections. It tracks collection
// sizes so that every update and delete addresses an existing position.
func (g *Generator) Ops(n int) []Op {
	sizes := map[slip.Kind]int{}
	out := make([]Op, 0, n)
	for i := 0; i < n; i++ {
		target := slip.Kinds[g.rng.Intn(len(slip.Kinds))]
		op := Op{Target: target, Kind: OpAdd}
		if size := sizes[target]; size > 0 {
			switch g.rng.Intn(4) {
			case 0:
				op.Kind, op.Index = OpUpdate, g.rng.Intn(size)
			case 1:
				op.Kind, op.Index = OpDelete, g.rng.Intn(size)
			}
		}
		switch op.Kind {
		case OpAdd:
			sizes[target]++
		case OpDelete:
			sizes[target]--
		}
		switch target {
		case slip.KindIncentive:
			op.Incentive = g.Incentive()
		case slip.KindSalary:
			op.Salary = g.Salary()
		case slip.KindProfits:
			op.Profits = g.Profits()
		}
		out = append(out, op)
	}
	return out
}
