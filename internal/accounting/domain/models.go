package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Period is a date-bounded ledger partition. Payments and accounts belong to
// exactly one period, resolved by containment of the payment timestamp.
type Period struct {
	ID   int64
	From time.Time
	To   time.Time
}

// Contains reports whether ts falls inside the period's validity interval.
func (p Period) Contains(ts time.Time) bool {
	return !ts.Before(p.From) && !ts.After(p.To)
}

// TemplateIDs are the three account templates donations are posted against.
type TemplateIDs struct {
	Donation int64
	Debtor   int64
	Bank     int64
}

// Digest keys the cache on the template configuration, so an administrative
// change of any template id invalidates the cached accounts.
func (t TemplateIDs) Digest() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%d|%d", t.Donation, t.Debtor, t.Bank)))
	return hex.EncodeToString(sum[:])
}

// Config is a resolved and cached (period, accounts) tuple. Rows are computed
// lazily, persisted, and reused until externally invalidated; there is no
// active expiry because the mapping is deterministic per period.
type Config struct {
	ID                snowflake.ID `gorm:"primaryKey"`
	Tenant            string       `gorm:"type:text;not null;uniqueIndex:ux_accounting_configs_key,priority:1"`
	PeriodID          int64        `gorm:"not null;uniqueIndex:ux_accounting_configs_key,priority:2"`
	TemplateDigest    string       `gorm:"type:text;not null;uniqueIndex:ux_accounting_configs_key,priority:3"`
	ValidFrom         time.Time    `gorm:"not null"`
	ValidTo           time.Time    `gorm:"not null"`
	DonationAccountID int64        `gorm:"not null"`
	DebtorAccountID   int64        `gorm:"not null"`
	BankAccountID     int64        `gorm:"not null"`
	CreatedAt         time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Config) TableName() string { return "accounting_configs" }
