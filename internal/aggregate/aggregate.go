// Package aggregate derives the profile's running totals and leave balances
// from slip collections.
//
// Two paths exist. Apply adjusts derived fields by one slip's contribution and
// is used on every mutation. Recompute sums whole collections and is the
// reference the incremental path must agree with; it runs only on corrective
// operations.
package aggregate

import (
	"github.com/shopspring/decimal"

	"github.com/jask/slipbook/internal/slip"
)

// Sign selects whether a contribution is added or taken back.
type Sign int

const (
	Add    Sign = 1
	Remove Sign = -1
)

// Slips is one snapshot of the three collections.
type Slips struct {
	Incentives []slip.Incentive
	Salaries   []slip.Salary
	Profits    []slip.Profits
}

// Apply adds (or removes) the contribution of data to d.
func Apply[T slip.Data](d slip.Derived, settings slip.Settings, data T, sign Sign) slip.Derived {
	switch s := any(data).(type) {
	case slip.Incentive:
		return applyIncentive(d, settings, s, sign)
	case slip.Salary:
		return applySalary(d, s, sign)
	case slip.Profits:
		return applyProfits(d, s, sign)
	}
	return d
}

// Replace removes prev's contribution and then adds next's. Updates must not
// be applied as a diff since the leave rule branches on zero usage.
func Replace[T slip.Data](d slip.Derived, settings slip.Settings, prev, next T) slip.Derived {
	d = Apply(d, settings, prev, Remove)
	return Apply(d, settings, next, Add)
}

func applyIncentive(d slip.Derived, settings slip.Settings, s slip.Incentive, sign Sign) slip.Derived {
	d.TotalIncentive = signed(d.TotalIncentive, s.TotalIncentiveAmount, sign)
	d.TotalRewards = signed(d.TotalRewards, s.RewardsAmount, sign)
	d.RegularLeaveBalance = AdjustLeave(d.RegularLeaveBalance, settings.RegularLeaveBonus, s.RegularLeaveDays, sign)
	d.SickLeaveBalance = AdjustLeave(d.SickLeaveBalance, settings.SickLeaveBonus, s.SickLeaveDays, sign)
	return d
}

func applySalary(d slip.Derived, s slip.Salary, sign Sign) slip.Derived {
	d.TotalSalary = signed(d.TotalSalary, s.TotalSalaryAmount, sign)
	d.TotalRewards = signed(d.TotalRewards, s.BonusAmount, sign)
	return d
}

func applyProfits(d slip.Derived, s slip.Profits, sign Sign) slip.Derived {
	d.TotalProfits = signed(d.TotalProfits, s.TotalProfitsAmount, sign)
	return d
}

// AdjustLeave applies one slip's leave usage to a balance. A slip reporting no
// usage only accrues the bonus; otherwise the bonus accrues and the usage is
// consumed. Removal negates whichever branch applies. The result never drops
// below zero.
func AdjustLeave(balance, bonus, used int, sign Sign) int {
	delta := bonus
	if used != 0 {
		delta = bonus - used
	}
	balance += int(sign) * delta
	if balance < 0 {
		return 0
	}
	return balance
}

func signed(total, amount decimal.Decimal, sign Sign) decimal.Decimal {
	if sign == Remove {
		return total.Sub(amount)
	}
	return total.Add(amount)
}

// Recompute sums every collection into the profile totals. Leave balances are
// carried over from p unchanged: clamping makes them order dependent, so they
// cannot be rebuilt from an unordered set (see ReplayLeave).
func Recompute(slips Slips, p slip.Profile) slip.Derived {
	d := slip.Derived{
		RegularLeaveBalance: p.Derived.RegularLeaveBalance,
		SickLeaveBalance:    p.Derived.SickLeaveBalance,
		TotalIncentive:      decimal.Zero,
		TotalSalary:         decimal.Zero,
		TotalProfits:        decimal.Zero,
		TotalRewards:        decimal.Zero,
	}
	for _, s := range slips.Incentives {
		d.TotalIncentive = d.TotalIncentive.Add(s.TotalIncentiveAmount)
		d.TotalRewards = d.TotalRewards.Add(s.RewardsAmount)
	}
	for _, s := range slips.Salaries {
		d.TotalSalary = d.TotalSalary.Add(s.TotalSalaryAmount)
		d.TotalRewards = d.TotalRewards.Add(s.BonusAmount)
	}
	for _, s := range slips.Profits {
		d.TotalProfits = d.TotalProfits.Add(s.TotalProfitsAmount)
	}
	return d
}

// ReplayLeave replays the leave rule over incentives in the order given,
// starting from the supplied balances.
func ReplayLeave(regular, sick int, settings slip.Settings, incentives []slip.Incentive) (int, int) {
	for _, s := range incentives {
		regular = AdjustLeave(regular, settings.RegularLeaveBonus, s.RegularLeaveDays, Add)
		sick = AdjustLeave(sick, settings.SickLeaveBonus, s.SickLeaveDays, Add)
	}
	return regular, sick
}
