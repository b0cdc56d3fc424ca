package accounting

import (
	"github.com/smallbiznis/ledgerbridge/internal/accounting/repository"
	"github.com/smallbiznis/ledgerbridge/internal/accounting/service"
	"go.uber.org/fx"
)

var Module = fx.Module("accounting.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
