//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"

	"replybot/internal/biz"
	"replybot/internal/conf"
	"replybot/internal/data"
	"replybot/internal/pkg/metrics"
	pkgredis "replybot/internal/pkg/redis"
	"replybot/internal/server"
	"replybot/internal/service"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Reply, *conf.Image, *conf.OCR, data.InstanceID, log.Logger) (*kratos.App, func(), error) {
	panic(wire.Build(
		server.ProviderSet,
		data.ProviderSet,
		biz.ProviderSet,
		service.ProviderSet,
		metrics.New,
		wire.Bind(new(server.RuleListener), new(*data.RuleNotifier)),
		newApp,
	))
}

// wireDetector builds the duplicate detector alone, for offline imports.
func wireDetector(*conf.Data, *conf.Image, log.Logger) (*biz.DuplicateDetector, func(), error) {
	panic(wire.Build(
		data.NewData,
		data.NewRedisCache,
		wire.Bind(new(pkgredis.Cache), new(*pkgredis.Redis)),
		data.NewHashIndexProvider,
		data.NewDetectorPolicy,
		biz.NewDuplicateDetector,
		metrics.New,
	))
}
