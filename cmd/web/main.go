package main

import (
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"

	"github.com/prajjwolcodes/KinBech/internal/config"
	"github.com/prajjwolcodes/KinBech/internal/server"
	"github.com/prajjwolcodes/KinBech/pkg/log"
)

func main() {
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		panic(err)
	}

	log.InitLogger()
	zap.L().Info("log init success")

	app := iris.New()
	server.RegisterRoutes(app, cfg)

	addr := cfg.Server.Addr()
	zap.L().Info("web server listening", zap.String("addr", addr))
	if err := app.Run(
		iris.Addr(addr),
		iris.WithOptimizations,
		iris.WithoutServerError(iris.ErrServerClosed),
	); err != nil {
		zap.L().Fatal("web server failed", zap.Error(err))
	}
}
