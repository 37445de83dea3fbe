package audit

import (
	"github.com/agrocoop/agrocoop/internal/audit/repository"
	"github.com/agrocoop/agrocoop/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
