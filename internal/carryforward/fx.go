package carryforward

import (
	"github.com/smallbiznis/feeledger/internal/carryforward/service"
	"go.uber.org/fx"
)

var Module = fx.Module("carryforward.service",
	fx.Provide(service.NewService),
)
