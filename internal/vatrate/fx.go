package vatrate

import (
	"github.com/smallbiznis/factuur/internal/vatrate/repository"
	"github.com/smallbiznis/factuur/internal/vatrate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("vatrate.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
)
