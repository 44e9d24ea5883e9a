package dues

import (
	"github.com/smallbiznis/feeledger/internal/dues/repository"
	"github.com/smallbiznis/feeledger/internal/dues/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dues.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
