package metrics

import "github.com/smallbiznis/feeledger/internal/config"

// Config labels every series with the service identity.
type Config struct {
	ServiceName string
	Environment string
}

func ConfigFrom(cfg config.Config) Config {
	return Config{ServiceName: cfg.AppName, Environment: cfg.Environment}
}
