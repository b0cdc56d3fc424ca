package member

import (
	"github.com/smallbiznis/ledgerbridge/internal/member/directory"
	"github.com/smallbiznis/ledgerbridge/internal/member/service"
	"go.uber.org/fx"
)

var Module = fx.Module("member",
	directory.Module,
	service.Module,
)
