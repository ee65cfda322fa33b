package models

import "time"

type Quota struct {
	OwnerID           int64     `db:"owner_id" json:"owner_id"`
	MonthlyLimit      int       `db:"monthly_limit" json:"monthly_limit"`
	MonthlyUsed       int       `db:"monthly_used" json:"monthly_used"`
	GlobalMonthlyUsed int       `db:"global_monthly_used" json:"global_monthly_used"`
	ResetOn           time.Time `db:"reset_on" json:"reset_on"`
}

type GlobalQuota struct {
	MonthlyLimit int       `db:"monthly_limit" json:"monthly_limit"`
	Used         int       `db:"used" json:"used"`
	ResetOn      time.Time `db:"reset_on" json:"reset_on"`
}

const (
	QuotaDeniedByOwner  = "owner"
	QuotaDeniedByGlobal = "global"
)

const (
	WarningNone     = "none"
	WarningLow      = "low"
	WarningCritical = "critical"
)

// FirstOfNextMonth returns midnight UTC on the first day of the month after t.
func FirstOfNextMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
