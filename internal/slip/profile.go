package slip

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinGrade = 1
	MaxGrade = 12
	MinStage = 1
	MaxStage = 10
)

// Settings are the user-editable profile fields.
type Settings struct {
	DisplayName       string    `json:"display_name" yaml:"display_name" validate:"max=64"`
	NextRegularLeave  time.Time `json:"next_regular_leave" yaml:"next_regular_leave"`
	NextSickLeave     time.Time `json:"next_sick_leave" yaml:"next_sick_leave"`
	ServiceStart      time.Time `json:"service_start" yaml:"service_start"`
	LastRewardsReset  time.Time `json:"last_rewards_reset" yaml:"last_rewards_reset"`
	RegularLeaveBonus int       `json:"regular_leave_bonus" yaml:"regular_leave_bonus" validate:"gte=0"`
	SickLeaveBonus    int       `json:"sick_leave_bonus" yaml:"sick_leave_bonus" validate:"gte=0"`
	Grade             int       `json:"grade" yaml:"grade" validate:"gte=1,lte=12"`
	Stage             int       `json:"stage" yaml:"stage" validate:"gte=1,lte=10"`
	CoursesNames      []string  `json:"courses_names" yaml:"courses_names" validate:"dive,required,max=128"`
	CoursesCompleted  []bool    `json:"courses_completed" yaml:"courses_completed"`
}

// Validate checks field bounds and that the course lists stay parallel.
func (s Settings) Validate() error {
	err := validateStruct(s)
	if len(s.CoursesNames) == len(s.CoursesCompleted) {
		return err
	}
	ve, ok := err.(*ValidationError)
	if !ok {
		if err != nil {
			return err
		}
		ve = &ValidationError{Fields: map[string]string{}}
	}
	ve.Fields["CoursesCompleted"] = "len_mismatch"
	return ve
}

// Derived are the fields maintained by slip mutations. Totals are cached
// denormalizations of the collections; see aggregate.Recompute.
type Derived struct {
	RegularLeaveBalance int             `json:"regular_leave_balance" yaml:"regular_leave_balance"`
	SickLeaveBalance    int             `json:"sick_leave_balance" yaml:"sick_leave_balance"`
	TotalIncentive      decimal.Decimal `json:"total_incentive" yaml:"total_incentive"`
	TotalSalary         decimal.Decimal `json:"total_salary" yaml:"total_salary"`
	TotalProfits        decimal.Decimal `json:"total_profits" yaml:"total_profits"`
	TotalRewards        decimal.Decimal `json:"total_rewards" yaml:"total_rewards"`
}

// Equal compares derived fields by value.
func (d Derived) Equal(o Derived) bool {
	return d.RegularLeaveBalance == o.RegularLeaveBalance &&
		d.SickLeaveBalance == o.SickLeaveBalance &&
		d.TotalIncentive.Equal(o.TotalIncentive) &&
		d.TotalSalary.Equal(o.TotalSalary) &&
		d.TotalProfits.Equal(o.TotalProfits) &&
		d.TotalRewards.Equal(o.TotalRewards)
}

// Profile is the single per-user record.
type Profile struct {
	AccountKey string   `json:"account_key,omitempty" yaml:"account_key,omitempty"`
	Settings   Settings `json:"settings" yaml:"settings"`
	Derived    Derived  `json:"derived" yaml:"derived"`
}

// DefaultProfile is the profile of a fresh install or an unlinked device.
func DefaultProfile() Profile {
	return Profile{
		Settings: Settings{
			Grade:            MinGrade,
			Stage:            MinStage,
			CoursesNames:     []string{},
			CoursesCompleted: []bool{},
		},
	}
}
