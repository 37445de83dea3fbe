package payment

import (
	"github.com/agrocoop/agrocoop/internal/payment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(service.New),
)
