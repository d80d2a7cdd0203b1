package remote

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/jask/slipbook/internal/slip"
)

// Record is a slip as stored remotely.
type Record[T slip.Data] struct {
	ID        int64
	Account   string
	CreatedAt time.Time
	Data      T
}

// SlipStore is the CRUD contract for one slip collection.
type SlipStore[T slip.Data] interface {
	Create(ctx context.Context, account string, data T) (Record[T], error)
	Update(ctx context.Context, account string, id int64, data T) (Record[T], error)
	Delete(ctx context.Context, account string, id int64) error
	List(ctx context.Context, account string) ([]Record[T], error)
	Get(ctx context.Context, id int64) (*Record[T], error)
}

// SlipTable implements SlipStore over one gorm model.
type SlipTable[T slip.Data, R any] struct {
	c       *conn
	table   string
	toRow   func(account string, data T) R
	fromRow func(R) Record[T]
}

func (t *SlipTable[T, R]) Create(ctx context.Context, account string, data T) (Record[T], error) {
	db, cancel := t.c.begin(ctx)
	defer cancel()

	row := t.toRow(account, data)
	if err := db.Create(&row).Error; err != nil {
		return Record[T]{}, t.c.fail(t.table, "create", err)
	}
	rec := t.fromRow(row)
	t.c.log.WithFields(logrus.Fields{"table": t.table, "remote_id": rec.ID}).Debug("created")
	return rec, nil
}

// Update replaces the slip fields of row id. The owning account and creation
// time are kept. A row owned by another account is reported as not found.
func (t *SlipTable[T, R]) Update(ctx context.Context, account string, id int64, data T) (Record[T], error) {
	db, cancel := t.c.begin(ctx)
	defer cancel()

	var cur R
	if err := db.Where("account_key = ?", account).First(&cur, id).Error; err != nil {
		return Record[T]{}, t.c.fail(t.table, "update", err)
	}
	next := t.toRow("", data)
	res := db.Model(&cur).Select("*").Omit("id", "account_key", "created_at").Updates(&next)
	if res.Error != nil {
		return Record[T]{}, t.c.fail(t.table, "update", res.Error)
	}
	var out R
	if err := db.First(&out, id).Error; err != nil {
		return Record[T]{}, t.c.fail(t.table, "update", err)
	}
	return t.fromRow(out), nil
}

func (t *SlipTable[T, R]) Delete(ctx context.Context, account string, id int64) error {
	db, cancel := t.c.begin(ctx)
	defer cancel()

	var zero R
	res := db.Where("account_key = ?", account).Delete(&zero, id)
	if res.Error != nil {
		return t.c.fail(t.table, "delete", res.Error)
	}
	if res.RowsAffected == 0 {
		return t.c.fail(t.table, "delete", notFound(t.table+".delete"))
	}
	return nil
}

// List returns the account's rows in insertion order.
func (t *SlipTable[T, R]) List(ctx context.Context, account string) ([]Record[T], error) {
	db, cancel := t.c.begin(ctx)
	defer cancel()

	var rows []R
	if err := db.Where("account_key = ?", account).Order("id").Find(&rows).Error; err != nil {
		return nil, t.c.fail(t.table, "list", err)
	}
	out := make([]Record[T], 0, len(rows))
	for _, r := range rows {
		out = append(out, t.fromRow(r))
	}
	return out, nil
}

// Get returns nil, nil when id does not exist.
func (t *SlipTable[T, R]) Get(ctx context.Context, id int64) (*Record[T], error) {
	db, cancel := t.c.begin(ctx)
	defer cancel()

	var row R
	if err := db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, t.c.fail(t.table, "get", err)
	}
	rec := t.fromRow(row)
	return &rec, nil
}

// rating maps a stored label back onto the fixed set, keeping the raw text
// when nothing is close enough.
func rating(s string) slip.Rating {
	r, err := slip.ParseRating(s)
	if err != nil {
		return slip.Rating(s)
	}
	return r
}

func incentiveToRow(account string, s slip.Incentive) IncentiveRow {
	return IncentiveRow{
		AccountKey:           account,
		Month:                s.Month,
		Points:               s.Points,
		Rating:               string(s.Rating),
		RegularLeaveDays:     s.RegularLeaveDays,
		SickLeaveDays:        s.SickLeaveDays,
		RewardsAmount:        s.RewardsAmount,
		TotalIncentiveAmount: s.TotalIncentiveAmount,
	}
}

func incentiveFromRow(r IncentiveRow) Record[slip.Incentive] {
	return Record[slip.Incentive]{
		ID:        r.ID,
		Account:   r.AccountKey,
		CreatedAt: r.CreatedAt,
		Data: slip.Incentive{
			Month:                r.Month,
			Points:               r.Points,
			Rating:               rating(r.Rating),
			RegularLeaveDays:     r.RegularLeaveDays,
			SickLeaveDays:        r.SickLeaveDays,
			RewardsAmount:        r.RewardsAmount,
			TotalIncentiveAmount: r.TotalIncentiveAmount,
		},
	}
}

func salaryToRow(account string, s slip.Salary) SalaryRow {
	return SalaryRow{
		AccountKey:        account,
		Month:             s.Month,
		TotalSalaryAmount: s.TotalSalaryAmount,
		BonusAmount:       s.BonusAmount,
	}
}

func salaryFromRow(r SalaryRow) Record[slip.Salary] {
	return Record[slip.Salary]{
		ID:        r.ID,
		Account:   r.AccountKey,
		CreatedAt: r.CreatedAt,
		Data: slip.Salary{
			Month:             r.Month,
			TotalSalaryAmount: r.TotalSalaryAmount,
			BonusAmount:       r.BonusAmount,
		},
	}
}

func profitsToRow(account string, s slip.Profits) ProfitsRow {
	return ProfitsRow{
		AccountKey:         account,
		Year:               s.Year,
		Period:             string(s.Period),
		Points:             s.Points,
		Rating:             string(s.Rating),
		TotalProfitsAmount: s.TotalProfitsAmount,
	}
}

func profitsFromRow(r ProfitsRow) Record[slip.Profits] {
	return Record[slip.Profits]{
		ID:        r.ID,
		Account:   r.AccountKey,
		CreatedAt: r.CreatedAt,
		Data: slip.Profits{
			Year:               r.Year,
			Period:             slip.Period(r.Period),
			Points:             r.Points,
			Rating:             rating(r.Rating),
			TotalProfitsAmount: r.TotalProfitsAmount,
		},
	}
}
