package remote

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/jask/slipbook/internal/slip"
)

// Account is a remote account with its profile.
type Account struct {
	ID         int64
	AccountKey string
	PINHash    string
	Profile    slip.Profile
	CreatedAt  time.Time
}

// ProfileStore is the CRUD contract for accounts.
type ProfileStore interface {
	Find(ctx context.Context, accountKey string) (*Account, error)
	Create(ctx context.Context, accountKey, pinHash string, p slip.Profile) (Account, error)
	Update(ctx context.Context, accountKey string, p slip.Profile) (Account, error)
}

// Accounts implements ProfileStore over the accounts table.
type Accounts struct {
	c *conn
}

const accountsTable = "accounts"

// Find returns nil, nil when no account uses accountKey.
func (a *Accounts) Find(ctx context.Context, accountKey string) (*Account, error) {
	db, cancel := a.c.begin(ctx)
	defer cancel()

	var row AccountRow
	if err := db.Where("account_key = ?", accountKey).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, a.c.fail(accountsTable, "find", err)
	}
	acct := accountFromRow(row)
	return &acct, nil
}

func (a *Accounts) Create(ctx context.Context, accountKey, pinHash string, p slip.Profile) (Account, error) {
	db, cancel := a.c.begin(ctx)
	defer cancel()

	row := accountToRow(p)
	row.AccountKey = accountKey
	row.PINHash = pinHash
	if err := db.Create(&row).Error; err != nil {
		return Account{}, a.c.fail(accountsTable, "create", err)
	}
	return accountFromRow(row), nil
}

// Update overwrites the profile fields of an account. The key, PIN hash and
// creation time are never touched.
func (a *Accounts) Update(ctx context.Context, accountKey string, p slip.Profile) (Account, error) {
	db, cancel := a.c.begin(ctx)
	defer cancel()

	var cur AccountRow
	if err := db.Where("account_key = ?", accountKey).First(&cur).Error; err != nil {
		return Account{}, a.c.fail(accountsTable, "update", err)
	}
	next := accountToRow(p)
	res := db.Model(&cur).Select("*").Omit("id", "account_key", "pin_hash", "created_at").Updates(&next)
	if res.Error != nil {
		return Account{}, a.c.fail(accountsTable, "update", res.Error)
	}
	var out AccountRow
	if err := db.First(&out, cur.ID).Error; err != nil {
		return Account{}, a.c.fail(accountsTable, "update", err)
	}
	return accountFromRow(out), nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func timeVal(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

func accountToRow(p slip.Profile) AccountRow {
	s, d := p.Settings, p.Derived
	names, done := s.CoursesNames, s.CoursesCompleted
	if names == nil {
		names = []string{}
	}
	if done == nil {
		done = []bool{}
	}
	return AccountRow{
		DisplayName:         s.DisplayName,
		RegularLeaveBalance: d.RegularLeaveBalance,
		SickLeaveBalance:    d.SickLeaveBalance,
		NextRegularLeave:    timePtr(s.NextRegularLeave),
		NextSickLeave:       timePtr(s.NextSickLeave),
		ServiceStart:        timePtr(s.ServiceStart),
		LastRewardsReset:    timePtr(s.LastRewardsReset),
		TotalRewards:        d.TotalRewards,
		TotalIncentive:      d.TotalIncentive,
		TotalSalary:         d.TotalSalary,
		TotalProfits:        d.TotalProfits,
		RegularLeaveBonus:   s.RegularLeaveBonus,
		SickLeaveBonus:      s.SickLeaveBonus,
		Grade:               s.Grade,
		Stage:               s.Stage,
		CoursesNames:        names,
		CoursesCompleted:    done,
	}
}

func accountFromRow(r AccountRow) Account {
	names, done := r.CoursesNames, r.CoursesCompleted
	if names == nil {
		names = []string{}
	}
	if done == nil {
		done = []bool{}
	}
	return Account{
		ID:         r.ID,
		AccountKey: r.AccountKey,
		PINHash:    r.PINHash,
		CreatedAt:  r.CreatedAt,
		Profile: slip.Profile{
			AccountKey: r.AccountKey,
			Settings: slip.Settings{
				DisplayName:       r.DisplayName,
				NextRegularLeave:  timeVal(r.NextRegularLeave),
				NextSickLeave:     timeVal(r.NextSickLeave),
				ServiceStart:      timeVal(r.ServiceStart),
				LastRewardsReset:  timeVal(r.LastRewardsReset),
				RegularLeaveBonus: r.RegularLeaveBonus,
				SickLeaveBonus:    r.SickLeaveBonus,
				Grade:             r.Grade,
				Stage:             r.Stage,
				CoursesNames:      names,
				CoursesCompleted:  done,
			},
			Derived: slip.Derived{
				RegularLeaveBalance: r.RegularLeaveBalance,
				SickLeaveBalance:    r.SickLeaveBalance,
				TotalIncentive:      r.TotalIncentive,
				TotalSalary:         r.TotalSalary,
				TotalProfits:        r.TotalProfits,
				TotalRewards:        r.TotalRewards,
			},
		},
	}
}
