package payment

import (
	"github.com/smallbiznis/ledgerbridge/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment",
	fx.Provide(service.NewService),
)
