package feerule

import (
	"github.com/agrocoop/agrocoop/internal/feerule/repository"
	"github.com/agrocoop/agrocoop/internal/feerule/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feerule.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
