package member

import (
	"github.com/agrocoop/agrocoop/internal/member/repository"
	"github.com/agrocoop/agrocoop/internal/member/service"
	"go.uber.org/fx"
)

var Module = fx.Module("member.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
