package remote

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jask/slipbook/internal/slip"
)

func openGateway(t *testing.T) *Gateway {
	t.Helper()
	g, err := Open("sqlite", filepath.Join(t.TempDir(), "remote.db"), WithTimeout(5*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g
}

func TestSlipTableCRUD(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := openGateway(t)

	in := slip.Salary{Month: "03/2024", TotalSalaryAmount: decimal.RequireFromString("1500.5"), BonusAmount: decimal.NewFromInt(20)}
	rec, err := g.Salaries.Create(ctx, "jd-01", in)
	require.NoError(t, err)
	require.NotZero(t, rec.ID)
	require.Equal(t, "jd-01", rec.Account)
	require.False(t, rec.CreatedAt.IsZero())

	foreign, err := g.Salaries.Create(ctx, "someone-else", in)
	require.NoError(t, err)

	list, err := g.Salaries.List(ctx, "jd-01")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.True(t, in.TotalSalaryAmount.Equal(list[0].Data.TotalSalaryAmount))

	in.BonusAmount = decimal.NewFromInt(75)
	updated, err := g.Salaries.Update(ctx, "jd-01", rec.ID, in)
	require.NoError(t, err)
	require.Equal(t, rec.ID, updated.ID)
	require.Equal(t, "jd-01", updated.Account)
	require.True(t, decimal.NewFromInt(75).Equal(updated.Data.BonusAmount))
	require.WithinDuration(t, rec.CreatedAt, updated.CreatedAt, time.Second)

	got, err := g.Salaries.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "03/2024", got.Data.Month)

	require.NoError(t, g.Salaries.Delete(ctx, "jd-01", rec.ID))
	require.True(t, IsNotFound(g.Salaries.Delete(ctx, "jd-01", rec.ID)))

	_, err = g.Salaries.Update(ctx, "jd-01", rec.ID, in)
	require.True(t, IsNotFound(err), "got %v", err)

	// rows of another account are out of reach
	_, err = g.Salaries.Update(ctx, "jd-01", foreign.ID, in)
	require.True(t, IsNotFound(err), "got %v", err)
	require.True(t, IsNotFound(g.Salaries.Delete(ctx, "jd-01", foreign.ID)))
	theirs, err := g.Salaries.Get(ctx, foreign.ID)
	require.NoError(t, err)
	require.NotNil(t, theirs)
	require.Equal(t, "someone-else", theirs.Account)
	require.True(t, decimal.NewFromInt(20).Equal(theirs.Data.BonusAmount))

	got, err = g.Salaries.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestRatingsAreNormalised(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := openGateway(t)

	row := ProfitsRow{AccountKey: "jd-01", Year: 2023, Period: "H2", Rating: "meets expectation", TotalProfitsAmount: decimal.NewFromInt(10)}
	require.NoError(t, g.DB().Create(&row).Error)

	got, err := g.Profits.Get(ctx, row.ID)
	require.NoError(t, err)
	require.Equal(t, slip.RatingMeets, got.Data.Rating)
	require.Equal(t, "2023/H2", got.Data.NaturalKey())
}

func TestAccounts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	g := openGateway(t)

	missing, err := g.Accounts.Find(ctx, "jd-01")
	require.NoError(t, err)
	require.Nil(t, missing)

	p := slip.DefaultProfile()
	p.Settings.DisplayName = "J. Doe"
	p.Settings.CoursesNames = []string{"Safety", "Excel"}
	p.Settings.CoursesCompleted = []bool{true, false}
	p.Settings.ServiceStart = time.Date(2019, 4, 1, 0, 0, 0, 0, time.UTC)
	p.Derived.RegularLeaveBalance = 12
	p.Derived.TotalSalary = decimal.NewFromInt(3000)

	acct, err := g.Accounts.Create(ctx, "jd-01", "hash", p)
	require.NoError(t, err)
	require.NotZero(t, acct.ID)

	_, err = g.Accounts.Create(ctx, "jd-01", "hash", p)
	require.True(t, IsValidation(err), "got %v", err)

	found, err := g.Accounts.Find(ctx, "jd-01")
	require.NoError(t, err)
	require.NotNil(t, found)
	require.Equal(t, "hash", found.PINHash)
	require.Equal(t, "jd-01", found.Profile.AccountKey)
	require.Equal(t, []string{"Safety", "Excel"}, found.Profile.Settings.CoursesNames)
	require.Equal(t, []bool{true, false}, found.Profile.Settings.CoursesCompleted)
	require.True(t, p.Settings.ServiceStart.Equal(found.Profile.Settings.ServiceStart))
	require.True(t, found.Profile.Settings.NextSickLeave.IsZero())
	require.True(t, p.Derived.Equal(found.Profile.Derived))

	p.Derived.RegularLeaveBalance = 4
	p.Settings.Grade = 5
	updated, err := g.Accounts.Update(ctx, "jd-01", p)
	require.NoError(t, err)
	require.Equal(t, 4, updated.Profile.Derived.RegularLeaveBalance)
	require.Equal(t, 5, updated.Profile.Settings.Grade)
	require.Equal(t, "hash", updated.PINHash)

	_, err = g.Accounts.Update(ctx, "nobody", p)
	require.True(t, IsNotFound(err))
}

func TestClosedConnectionIsUnavailable(t *testing.T) {
	t.Parallel()
	g := openGateway(t)
	require.NoError(t, g.Close())

	_, err := g.Incentives.List(context.Background(), "jd-01")
	require.Error(t, err)
	require.True(t, IsUnavailable(err), "got %v", err)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	require.NoError(t, classify("x", nil))
	err := classify("salary_slips.create", errors.New("connection refused"))
	require.True(t, IsUnavailable(err))
	require.ErrorContains(t, err, "remote salary_slips.create: unavailable")

	wrapped := classify("outer", err)
	require.Same(t, err, wrapped)
	require.Equal(t, Code(""), CodeOf(errors.New("plain")))

	_, err = Dialector("oracle", "")
	require.Error(t, err)
}
