package server

import (
	"github.com/kataras/iris/v12"

	"github.com/prajjwolcodes/KinBech/internal/config"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/order"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/user"
	"github.com/prajjwolcodes/KinBech/internal/gateway"
	"github.com/prajjwolcodes/KinBech/internal/infra/mq"
	"github.com/prajjwolcodes/KinBech/internal/infra/redis"
	"github.com/prajjwolcodes/KinBech/internal/middleware"
	"github.com/prajjwolcodes/KinBech/internal/repository/mysql"
	"github.com/prajjwolcodes/KinBech/internal/service"
)

// RegisterRoutes wires infrastructure, services and the buyer-facing API.
func RegisterRoutes(app *iris.Application, cfg *config.Config) {
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	userRepo := mysql.NewUserRepository(db)
	productRepo := mysql.NewProductRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	paymentRepo := mysql.NewPaymentRepository(db)

	gateways := gateway.NewRegistry(
		gateway.NewEsewa(cfg.Esewa),
		gateway.NewKhalti(cfg.Khalti),
	)
	locker := redis.NewOrderLock(redisClient, cfg.Checkout.LockTTL())
	publisher := mq.NewPublisher(mqConn)

	userSvc := service.NewUserService(userRepo, &cfg.JWT)
	productSvc := service.NewProductService(productRepo)
	orderSvc := service.NewOrderService(orderRepo, paymentRepo, productRepo, cfg.Checkout.OrderTTL())
	checkoutSvc := service.NewCheckoutService(db, orderRepo, gateways, locker, publisher)

	app.Use(middleware.RequestID())

	api := app.Party("/api")

	api.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "success", "message": "ok"})
	})

	// ---------- auth ----------

	api.Post("/register", func(ctx iris.Context) {
		var req struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, service.ErrInvalidRequest)
			return
		}
		u, err := userSvc.Register(ctx.Request().Context(), req.Username, req.Email, req.Password, req.Role)
		if err != nil {
			fail(ctx, err)
			return
		}
		created(ctx, "registered", u)
	})

	api.Post("/login", func(ctx iris.Context) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, service.ErrInvalidRequest)
			return
		}
		token, err := userSvc.Login(ctx.Request().Context(), req.Username, req.Password)
		if err != nil {
			ctx.StopWithJSON(401, iris.Map{"status": "error", "message": err.Error()})
			return
		}
		ok(ctx, "logged in", iris.Map{"token": token})
	})

	// ---------- authenticated ----------

	authAPI := api.Party("/", middleware.RequireAuth(&cfg.JWT))

	authAPI.Get("/products", func(ctx iris.Context) {
		list, err := productSvc.ListAll(ctx.Request().Context())
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, "products retrieved", list)
	})

	// ---------- orders (buyer) ----------

	buyerAPI := authAPI.Party("/orders", middleware.RequireRole(user.RoleBuyer, user.RoleAdmin))

	buyerAPI.Post("/", func(ctx iris.Context) {
		var req struct {
			Items []service.PlaceOrderItem `json:"items"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, service.ErrInvalidRequest)
			return
		}
		buyerID := ctx.Values().GetInt64Default(middleware.KeyUserID, 0)
		res, err := orderSvc.PlaceOrder(ctx.Request().Context(), buyerID, req.Items)
		if err != nil {
			fail(ctx, err)
			return
		}
		created(ctx, "order created", res)
	})

	buyerAPI.Get("/", func(ctx iris.Context) {
		buyerID := ctx.Values().GetInt64Default(middleware.KeyUserID, 0)
		res, err := orderSvc.ListBuyerOrders(ctx.Request().Context(), buyerID)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, "orders retrieved", res)
	})

	buyerAPI.Get("/{id:int64}", func(ctx iris.Context) {
		orderID, _ := ctx.Params().GetInt64("id")
		res, err := orderSvc.GetOrder(ctx.Request().Context(), orderID)
		if err != nil {
			fail(ctx, err)
			return
		}
		buyerID := ctx.Values().GetInt64Default(middleware.KeyUserID, 0)
		role := ctx.Values().GetString(middleware.KeyRole)
		if role != user.RoleAdmin && res.Order.BuyerID != buyerID {
			fail(ctx, service.ErrNotOrderOwner)
			return
		}
		ok(ctx, "order retrieved", res)
	})

	// ---------- checkout ----------

	buyerAPI.Post("/{id:int64}/checkout", middleware.CheckoutRateLimit(), func(ctx iris.Context) {
		orderID, _ := ctx.Params().GetInt64("id")
		var req service.CheckoutRequest
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, service.ErrInvalidRequest)
			return
		}
		buyerID := ctx.Values().GetInt64Default(middleware.KeyUserID, 0)
		res, err := checkoutSvc.InitiateCheckout(ctx.Request().Context(), buyerID, orderID, req)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, "checkout initiated", res)
	})

	buyerAPI.Post("/{id:int64}/checkout/verify", middleware.CheckoutRateLimit(), func(ctx iris.Context) {
		orderID, _ := ctx.Params().GetInt64("id")
		var req struct {
			CorrelationToken string `json:"correlationToken"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, service.ErrInvalidRequest)
			return
		}
		buyerID := ctx.Values().GetInt64Default(middleware.KeyUserID, 0)
		res, err := checkoutSvc.VerifyCheckout(ctx.Request().Context(), buyerID, orderID, req.CorrelationToken)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, "payment verified", res)
	})

	buyerAPI.Post("/{id:int64}/cancel", func(ctx iris.Context) {
		orderID, _ := ctx.Params().GetInt64("id")
		buyerID := ctx.Values().GetInt64Default(middleware.KeyUserID, 0)
		if ctx.Values().GetString(middleware.KeyRole) == user.RoleAdmin {
			buyerID = 0 // admins may cancel any order
		}
		res, err := checkoutSvc.CancelOrder(ctx.Request().Context(), buyerID, orderID)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, "order cancelled and stock restored", res)
	})

	// ---------- fulfilment (seller/admin) ----------

	fulfilAPI := authAPI.Party("/fulfilment", middleware.RequireRole(user.RoleSeller, user.RoleAdmin))

	fulfilAPI.Post("/orders/{id:int64}/status", func(ctx iris.Context) {
		orderID, _ := ctx.Params().GetInt64("id")
		var req struct {
			Status string `json:"status"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			fail(ctx, service.ErrInvalidRequest)
			return
		}
		next, valid := order.ParseStatus(req.Status)
		if !valid {
			fail(ctx, service.ErrInvalidRequest)
			return
		}
		o, err := orderSvc.UpdateStatus(ctx.Request().Context(), orderID, next)
		if err != nil {
			fail(ctx, err)
			return
		}
		ok(ctx, "order status updated", o)
	})
}
