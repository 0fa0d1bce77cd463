package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/prajjwolcodes/KinBech/internal/config"
	"github.com/prajjwolcodes/KinBech/internal/infra/mq"
	"github.com/prajjwolcodes/KinBech/internal/infra/redis"
	"github.com/prajjwolcodes/KinBech/internal/repository/mysql"
	"github.com/prajjwolcodes/KinBech/internal/service"
	"github.com/prajjwolcodes/KinBech/pkg/log"
)

func main() {
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		panic(err)
	}

	log.InitLogger()

	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	orderRepo := mysql.NewOrderRepository(db)
	locker := redis.NewOrderLock(redisClient, cfg.Checkout.LockTTL())
	publisher := mq.NewPublisher(mqConn)

	sweeper := service.NewExpirySweeper(db, orderRepo, locker, publisher, cfg.Checkout.SweepInterval())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		zap.L().Info("shutting down expiry sweeper")
		cancel()
	}()

	sweeper.Run(ctx)
}
