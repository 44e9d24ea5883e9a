package notification

import (
	"github.com/smallbiznis/feeledger/internal/notification/outbox"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.outbox",
	fx.Provide(outbox.Provide),
)
