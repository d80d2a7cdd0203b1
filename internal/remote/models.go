package remote

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountRow is the remote profile of one account.
type AccountRow struct {
	ID                  int64           `gorm:"primaryKey"`
	AccountKey          string          `gorm:"uniqueIndex;size:64;not null"`
	PINHash             string          `gorm:"column:pin_hash;size:72;not null"`
	DisplayName         string          `gorm:"size:64"`
	RegularLeaveBalance int             `gorm:"not null;default:0"`
	SickLeaveBalance    int             `gorm:"not null;default:0"`
	NextRegularLeave    *time.Time
	NextSickLeave       *time.Time
	ServiceStart        *time.Time
	LastRewardsReset    *time.Time
	TotalRewards        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	TotalIncentive      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	TotalSalary         decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	TotalProfits        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	RegularLeaveBonus   int             `gorm:"not null;default:0"`
	SickLeaveBonus      int             `gorm:"not null;default:0"`
	Grade               int             `gorm:"not null;default:1"`
	Stage               int             `gorm:"not null;default:1"`
	CoursesNames        []string        `gorm:"type:text;serializer:json"`
	CoursesCompleted    []bool          `gorm:"type:text;serializer:json"`
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (AccountRow) TableName() string { return "accounts" }

type IncentiveRow struct {
	ID                   int64           `gorm:"primaryKey"`
	AccountKey           string          `gorm:"index;size:64;not null"`
	Month                string          `gorm:"size:7;not null"`
	Points               decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	Rating               string          `gorm:"size:32;not null"`
	RegularLeaveDays     int             `gorm:"not null;default:0"`
	SickLeaveDays        int             `gorm:"not null;default:0"`
	RewardsAmount        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	TotalIncentiveAmount decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	CreatedAt            time.Time
}

func (IncentiveRow) TableName() string { return "incentive_slips" }

type SalaryRow struct {
	ID                int64           `gorm:"primaryKey"`
	AccountKey        string          `gorm:"index;size:64;not null"`
	Month             string          `gorm:"size:7;not null"`
	TotalSalaryAmount decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	BonusAmount       decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	CreatedAt         time.Time
}

func (SalaryRow) TableName() string { return "salary_slips" }

type ProfitsRow struct {
	ID                 int64           `gorm:"primaryKey"`
	AccountKey         string          `gorm:"index;size:64;not null"`
	Year               int             `gorm:"not null"`
	Period             string          `gorm:"size:2;not null"`
	Points             decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	Rating             string          `gorm:"size:32;not null"`
	TotalProfitsAmount decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0"`
	CreatedAt          time.Time
}

func (ProfitsRow) TableName() string { return "profits_slips" }
