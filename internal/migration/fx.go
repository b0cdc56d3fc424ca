package migration

import (
	accountingdomain "github.com/smallbiznis/ledgerbridge/internal/accounting/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

// Module keeps the schema current on startup so the service is usable out of
// the box for local and self-hosted environments.
var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		return conn.AutoMigrate(&accountingdomain.Config{})
	}),
)
