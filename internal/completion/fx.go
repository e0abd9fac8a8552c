package completion

import (
	"github.com/smallbiznis/factuur/internal/completion/repository"
	"github.com/smallbiznis/factuur/internal/completion/service"
	"github.com/smallbiznis/factuur/internal/invoice/completor"
	vatratedomain "github.com/smallbiznis/factuur/internal/vatrate/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("completion.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(func(svc vatratedomain.Service) completor.RateLookup { return svc }),
	fx.Provide(completor.NewInvoiceCompletor),
	fx.Provide(service.NewService),
)
