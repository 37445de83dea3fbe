package feeapplication

import (
	"github.com/agrocoop/agrocoop/internal/feeapplication/repository"
	"github.com/agrocoop/agrocoop/internal/feeapplication/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feeapplication.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
