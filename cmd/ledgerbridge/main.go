package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerbridge/internal/accounting"
	"github.com/smallbiznis/ledgerbridge/internal/clock"
	"github.com/smallbiznis/ledgerbridge/internal/config"
	"github.com/smallbiznis/ledgerbridge/internal/credential"
	"github.com/smallbiznis/ledgerbridge/internal/ledger/client"
	"github.com/smallbiznis/ledgerbridge/internal/lock"
	"github.com/smallbiznis/ledgerbridge/internal/logger"
	"github.com/smallbiznis/ledgerbridge/internal/member"
	"github.com/smallbiznis/ledgerbridge/internal/migration"
	"github.com/smallbiznis/ledgerbridge/internal/notifier"
	"github.com/smallbiznis/ledgerbridge/internal/payment"
	"github.com/smallbiznis/ledgerbridge/internal/reconcile"
	"github.com/smallbiznis/ledgerbridge/internal/server"
	"github.com/smallbiznis/ledgerbridge/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Upstream boundaries
		credential.Module,
		client.Module,
		lock.Module,
		notifier.Module,

		// Functional domains
		member.Module,
		accounting.Module,
		payment.Module,
		reconcile.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
