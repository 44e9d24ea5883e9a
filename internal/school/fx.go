package school

import (
	"github.com/smallbiznis/feeledger/internal/school/repository"
	"go.uber.org/fx"
)

// Module wires the gorm-backed lookups over tables owned by the school
// administration system.
var Module = fx.Module("school.repository",
	fx.Provide(
		repository.ProvideStudents,
		repository.ProvideFeeStructures,
		repository.ProvidePayments,
	),
)
