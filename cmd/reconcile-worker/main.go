package main

import (
	"context"
	"encoding/json"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/prajjwolcodes/KinBech/internal/config"
	"github.com/prajjwolcodes/KinBech/internal/gateway"
	"github.com/prajjwolcodes/KinBech/internal/infra/mq"
	"github.com/prajjwolcodes/KinBech/internal/infra/redis"
	"github.com/prajjwolcodes/KinBech/internal/repository/mysql"
	"github.com/prajjwolcodes/KinBech/internal/service"
	"github.com/prajjwolcodes/KinBech/pkg/log"
)

// The reconcile worker drains paid-but-out-of-stock cases. It retries the
// stock deduction once (the seller may have restocked between capture and
// consumption); cases it cannot settle stay flagged for the admin API.
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
	gateways := gateway.NewRegistry(
		gateway.NewEsewa(cfg.Esewa),
		gateway.NewKhalti(cfg.Khalti),
	)
	locker := redis.NewOrderLock(redisClient, cfg.Checkout.LockTTL())
	publisher := mq.NewPublisher(mqConn)
	checkoutSvc := service.NewCheckoutService(db, orderRepo, gateways, locker, publisher)

	ch, err := mqConn.Channel()
	if err != nil {
		zap.L().Fatal("failed to open channel", zap.Error(err))
	}
	defer ch.Close()

	if _, err = ch.QueueDeclare(mq.ReconcileQueue, true, false, false, false, nil); err != nil {
		zap.L().Fatal("failed to declare queue", zap.Error(err))
	}

	msgs, err := ch.Consume(mq.ReconcileQueue, "", false, false, false, false, nil)
	if err != nil {
		zap.L().Fatal("failed to consume", zap.Error(err))
	}

	zap.L().Info("reconcile worker started, waiting for messages")

	for d := range msgs {
		var evt mq.OrderEvent
		if err := json.Unmarshal(d.Body, &evt); err != nil {
			zap.L().Error("invalid message", zap.Error(err))
			_ = d.Nack(false, false)
			continue
		}
		handleEvent(context.Background(), checkoutSvc, &evt, d)
	}
}

func handleEvent(ctx context.Context, checkoutSvc *service.CheckoutService, evt *mq.OrderEvent, d amqp.Delivery) {
	zap.L().Info("reconcile case received",
		zap.String("event_id", evt.EventID),
		zap.Int64("order_id", evt.OrderID),
		zap.Int64("payment_id", evt.PaymentID),
		zap.Int64("product_id", evt.ProductID))

	_, err := checkoutSvc.ResolveReconciliation(ctx, evt.PaymentID, "confirm")
	switch {
	case err == nil:
		zap.L().Info("reconcile case auto-confirmed after restock",
			zap.Int64("order_id", evt.OrderID))
		_ = d.Ack(false)
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrPaymentNotFound):
		// Already resolved by an operator, nothing left to do.
		_ = d.Ack(false)
	case errors.Is(err, service.ErrIllegalTransition):
		// The order was cancelled in the meantime; only a refund settles this.
		zap.L().Warn("reconcile case needs refund, leaving for operator",
			zap.Int64("order_id", evt.OrderID),
			zap.Int64("payment_id", evt.PaymentID))
		_ = d.Ack(false)
	default:
		var stockErr *service.InsufficientStockError
		if errors.As(err, &stockErr) {
			// Still out of stock; leave the flag for the admin API.
			zap.L().Warn("reconcile case left for operator",
				zap.Int64("order_id", evt.OrderID),
				zap.Int64("product_id", stockErr.ProductID))
			_ = d.Ack(false)
			return
		}
		zap.L().Error("reconcile handling failed, requeueing", zap.Error(err))
		_ = d.Nack(false, true)
	}
}
