package unit

import (
	"github.com/agrocoop/agrocoop/internal/unit/repository"
	"github.com/agrocoop/agrocoop/internal/unit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("unit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
