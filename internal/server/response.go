package server

import (
	"errors"

	"github.com/kataras/iris/v12"
	"gorm.io/gorm"

	"github.com/prajjwolcodes/KinBech/internal/gateway"
	"github.com/prajjwolcodes/KinBech/internal/service"
)

func ok(ctx iris.Context, message string, data any) {
	ctx.JSON(iris.Map{"status": "success", "message": message, "data": data})
}

func created(ctx iris.Context, message string, data any) {
	ctx.StatusCode(iris.StatusCreated)
	ctx.JSON(iris.Map{"status": "success", "message": message, "data": data})
}

// fail maps the checkout error taxonomy onto HTTP status codes. Gateway
// failures surface as structured errors rather than opaque 500s.
func fail(ctx iris.Context, err error) {
	code := 500
	payload := iris.Map{"status": "error", "message": err.Error()}

	var stockErr *service.InsufficientStockError
	var rejected *gateway.RejectedError

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		code = 400
	case errors.Is(err, service.ErrPaymentFailed):
		code = 402
	case errors.Is(err, service.ErrNotOrderOwner):
		code = 403
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrPaymentNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		code = 404
	case errors.As(err, &stockErr):
		code = 409
		payload["code"] = "INSUFFICIENT_STOCK"
		payload["productId"] = stockErr.ProductID
	case errors.Is(err, service.ErrPaidButOutOfStock):
		code = 409
		payload["code"] = "PAID_BUT_OUT_OF_STOCK"
	case errors.Is(err, service.ErrOrderNotPending),
		errors.Is(err, service.ErrAlreadyPaid),
		errors.Is(err, service.ErrIllegalTransition),
		errors.Is(err, service.ErrCheckoutInProgress):
		code = 409
	case errors.As(err, &rejected):
		code = 422
	case errors.Is(err, gateway.ErrUnreachable):
		code = 503
	}

	ctx.StopWithJSON(code, payload)
}
