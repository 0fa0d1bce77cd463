package server

import (
	"github.com/kataras/iris/v12"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/prajjwolcodes/KinBech/internal/config"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/user"
	"github.com/prajjwolcodes/KinBech/internal/gateway"
	"github.com/prajjwolcodes/KinBech/internal/infra/mq"
	"github.com/prajjwolcodes/KinBech/internal/infra/redis"
	"github.com/prajjwolcodes/KinBech/internal/middleware"
	"github.com/prajjwolcodes/KinBech/internal/repository/mysql"
	"github.com/prajjwolcodes/KinBech/internal/service"
)

// RegisterAdminRoutes wires the operator-facing API, usually on a separate
// port from the buyer API.
func RegisterAdminRoutes(app *iris.Application, cfg *config.Config) {
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	orderRepo := mysql.NewOrderRepository(db)
	paymentRepo := mysql.NewPaymentRepository(db)
	productRepo := mysql.NewProductRepository(db)

	gateways := gateway.NewRegistry(
		gateway.NewEsewa(cfg.Esewa),
		gateway.NewKhalti(cfg.Khalti),
	)
	locker := redis.NewOrderLock(redisClient, cfg.Checkout.LockTTL())
	publisher := mq.NewPublisher(mqConn)

	orderSvc := service.NewOrderService(orderRepo, paymentRepo, productRepo, cfg.Checkout.OrderTTL())
	checkoutSvc := service.NewCheckoutService(db, orderRepo, gateways, locker, publisher)

	app.Use(middleware.RequestID())

	app.Get("/metrics", iris.FromStd(promhttp.Handler()))

	api := app.Party("/api", middleware.RequireAuth(&cfg.JWT), middleware.RequireRole(user.RoleAdmin))

	// ---------- orders ----------

	api.Get("/orders", func(ctx iris.Context) {
		limit := ctx.URLParamIntDefault("limit", 50)
		res, err := orderSvc.ListRecentOrders(ctx.Request().Context(), limit)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, "orders retrieved", res)
	})

	// ---------- reconciliation ----------

	api.Get("/reconciliations", func(ctx iris.Context) {
		list, err := paymentRepo.ListNeedingReconcile(ctx.Request().Context(), 100)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, "reconciliations retrieved", list)
	})

	api.Post("/reconciliations/{paymentId:int64}/resolve", func(ctx iris.Context) {
		paymentID, _ := ctx.Params().GetInt64("paymentId")
		var req struct {
			Action string `json:"action"` // confirm | refund
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, service.ErrInvalidRequest)
			return
		}
		res, err := checkoutSvc.ResolveReconciliation(ctx.Request().Context(), paymentID, req.Action)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, "reconciliation resolved", res)
	})

	// ---------- stats ----------

	api.Get("/stats", func(ctx iris.Context) {
		counts := map[string]int64{}
		for _, status := range []string{"PENDING", "CONFIRMED", "DELIVERED", "CANCELLED", "COMPLETED"} {
			var n int64
			if err := db.Table("orders").Where("status = ?", status).Count(&n).Error; err != nil {
				fail(ctx, err)
				return
			}
			counts[status] = n
		}
		var reconcile int64
		if err := db.Table("payments").Where("needs_reconcile = ?", true).Count(&reconcile).Error; err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, "stats retrieved", iris.Map{
			"orders":                counts,
			"pendingReconciliation": reconcile,
		})
	})
}
