package slip

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/shopspring/decimal"
)

// Kind names a slip collection.
type Kind string

const (
	KindIncentive Kind = "incentive"
	KindSalary    Kind = "salary"
	KindProfits   Kind = "profits"
)

// Kinds lists every collection in a stable order.
var Kinds = []Kind{KindIncentive, KindSalary, KindProfits}

// ParseKind accepts the collection name or its plural form.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "incentive", "incentives":
		return KindIncentive, nil
	case "salary", "salaries":
		return KindSalary, nil
	case "profits", "profit":
		return KindProfits, nil
	}
	return "", fmt.Errorf("unknown slip kind %q", s)
}

// Rating is the appraisal label attached to incentive and profits slips.
type Rating string

const (
	RatingOutstanding      Rating = "Outstanding"
	RatingExceeds          Rating = "Exceeds Expectations"
	RatingMeets            Rating = "Meets Expectations"
	RatingNeedsImprovement Rating = "Needs Improvement"
	RatingUnsatisfactory   Rating = "Unsatisfactory"
)

const maxRatingEditDistance = 2

// Ratings lists the accepted labels, best first.
var Ratings = []Rating{RatingOutstanding, RatingExceeds, RatingMeets, RatingNeedsImprovement, RatingUnsatisfactory}

// Valid reports whether r is one of the fixed labels.
func (r Rating) Valid() bool {
	for _, known := range Ratings {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRating matches s against the fixed labels. Matching ignores case and
// tolerates small misspellings as long as exactly one label is close enough.
func ParseRating(s string) (Rating, error) {
	in := strings.ToUpper(strings.Join(strings.Fields(s), " "))
	if in == "" {
		return "", fmt.Errorf("rating required")
	}
	var (
		best     Rating
		bestDist = maxRatingEditDistance + 1
		ties     int
	)
	for _, r := range Ratings {
		d := levenshtein.ComputeDistance(in, strings.ToUpper(string(r)))
		if d == 0 {
			return r, nil
		}
		switch {
		case d < bestDist:
			best, bestDist, ties = r, d, 1
		case d == bestDist:
			ties++
		}
	}
	if bestDist > maxRatingEditDistance || ties > 1 {
		return "", fmt.Errorf("unknown rating %q", s)
	}
	return best, nil
}

// Period is a half-year token used by profits slips.
type Period string

const (
	PeriodH1 Period = "H1"
	PeriodH2 Period = "H2"
)

// ParsePeriod accepts H1/H2 in any case.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToUpper(strings.TrimSpace(s))) {
	case PeriodH1:
		return PeriodH1, nil
	case PeriodH2:
		return PeriodH2, nil
	}
	return "", fmt.Errorf("unknown period %q (want H1 or H2)", s)
}

// Incentive is a monthly incentive slip.
type Incentive struct {
	Month                string          `json:"month" yaml:"month" validate:"required,month"`
	Points               decimal.Decimal `json:"points" yaml:"points" validate:"gte=0"`
	Rating               Rating          `json:"rating" yaml:"rating" validate:"required,rating"`
	RegularLeaveDays     int             `json:"regular_leave_days" yaml:"regular_leave_days" validate:"gte=0"`
	SickLeaveDays        int             `json:"sick_leave_days" yaml:"sick_leave_days" validate:"gte=0"`
	RewardsAmount        decimal.Decimal `json:"rewards_amount" yaml:"rewards_amount" validate:"gte=0"`
	TotalIncentiveAmount decimal.Decimal `json:"total_incentive_amount" yaml:"total_incentive_amount" validate:"gte=0"`
}

// Salary is a monthly salary slip.
type Salary struct {
	Month             string          `json:"month" yaml:"month" validate:"required,month"`
	TotalSalaryAmount decimal.Decimal `json:"total_salary_amount" yaml:"total_salary_amount" validate:"gte=0"`
	BonusAmount       decimal.Decimal `json:"bonus_amount" yaml:"bonus_amount" validate:"gte=0"`
}

// Profits is a half-yearly profit-share slip.
type Profits struct {
	Year               int             `json:"year" yaml:"year" validate:"gte=1970,lte=9999"`
	Period             Period          `json:"period" yaml:"period" validate:"required,oneof=H1 H2"`
	Points             decimal.Decimal `json:"points" yaml:"points" validate:"gte=0"`
	Rating             Rating          `json:"rating" yaml:"rating" validate:"required,rating"`
	TotalProfitsAmount decimal.Decimal `json:"total_profits_amount" yaml:"total_profits_amount" validate:"gte=0"`
}

func (Incentive) Kind() Kind { return KindIncentive }
func (Salary) Kind() Kind    { return KindSalary }
func (Profits) Kind() Kind   { return KindProfits }

// NaturalKey is the field combination that must be unique per collection.
func (s Incentive) NaturalKey() string { return s.Month }
func (s Salary) NaturalKey() string    { return s.Month }
func (s Profits) NaturalKey() string   { return fmt.Sprintf("%04d/%s", s.Year, s.Period) }

func (s Incentive) Validate() error { return validateStruct(s) }
func (s Salary) Validate() error    { return validateStruct(s) }
func (s Profits) Validate() error   { return validateStruct(s) }

// Data is satisfied by the three slip variants.
type Data interface {
	Incentive | Salary | Profits
	Kind() Kind
	NaturalKey() string
	Validate() error
}
