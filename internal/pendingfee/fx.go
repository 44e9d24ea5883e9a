package pendingfee

import (
	"github.com/smallbiznis/feeledger/internal/pendingfee/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pendingfee.service",
	fx.Provide(service.NewService),
)
