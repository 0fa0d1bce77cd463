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

	app := iris.New()
	server.RegisterAdminRoutes(app, cfg)

	addr := cfg.AdminServer.Addr()
	zap.L().Info("admin server listening", zap.String("addr", addr))
	if err := app.Run(
		iris.Addr(addr),
		iris.WithoutServerError(iris.ErrServerClosed),
	); err != nil {
		zap.L().Fatal("admin server failed", zap.Error(err))
	}
}
