package promotion

import (
	"github.com/smallbiznis/feeledger/internal/promotion/domain"
	"github.com/smallbiznis/feeledger/internal/promotion/repository"
	"github.com/smallbiznis/feeledger/internal/promotion/service"
	"go.uber.org/fx"
)

var Module = fx.Module("promotion.service",
	fx.Provide(repository.Provide),
	fx.Provide(func() domain.EligibilityPolicy { return domain.AlwaysEligible{} }),
	fx.Provide(service.NewService),
)
