package feeassignment

import (
	"github.com/agrocoop/agrocoop/internal/feeassignment/repository"
	"github.com/agrocoop/agrocoop/internal/feeassignment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("feeassignment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
