package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/prajjwolcodes/KinBech/internal/config"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/order"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/payment"
)

const esewaSuccessStatus = "COMPLETE"

// Esewa form-redirect adapter. Requests are form-urlencoded and carry an
// HMAC-SHA256 signature over (total_amount, transaction_uuid, product_code)
// keyed by the shared merchant secret; the provider answers with a redirect
// Location the buyer is sent to.
type Esewa struct {
	cfg    config.EsewaConfig
	client *http.Client
}

// NewEsewa creates the adapter with a bounded-timeout client that does not
// follow redirects, so the Location header stays observable.
func NewEsewa(cfg config.EsewaConfig) *Esewa {
	return &Esewa{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout(),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (e *Esewa) Method() payment.Method {
	return payment.MethodEsewa
}

// sign computes base64(HMAC-SHA256(canonical, secret)) over the canonical
// signed-field string the provider expects.
func (e *Esewa) sign(totalAmount, transactionUUID string) string {
	canonical := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s",
		totalAmount, transactionUUID, e.cfg.ProductCode)
	mac := hmac.New(sha256.New, []byte(e.cfg.SecretKey))
	mac.Write([]byte(canonical))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// amountString renders paisa as a rupee decimal, the unit eSewa expects.
func amountString(paisa int64) string {
	return strconv.FormatFloat(float64(paisa)/100, 'f', 2, 64)
}

func (e *Esewa) Initiate(ctx context.Context, p *payment.Payment, o *order.Order, targets RedirectTargets) (*Initiation, error) {
	successURL := targets.SuccessURL
	if successURL == "" {
		successURL = e.cfg.SuccessURL
	}
	failureURL := targets.FailureURL
	if failureURL == "" {
		failureURL = e.cfg.FailureURL
	}

	total := amountString(p.Amount)
	form := url.Values{}
	form.Set("amount", total)
	form.Set("tax_amount", "0")
	form.Set("total_amount", total)
	form.Set("transaction_uuid", p.TransactionID)
	form.Set("product_code", e.cfg.ProductCode)
	form.Set("product_service_charge", "0")
	form.Set("product_delivery_charge", "0")
	form.Set("success_url", successURL)
	form.Set("failure_url", failureURL)
	form.Set("signed_field_names", "total_amount,transaction_uuid,product_code")
	form.Set("signature", e.sign(total, p.TransactionID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.FormURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	loc := resp.Header.Get("Location")
	if resp.StatusCode < 300 || resp.StatusCode >= 400 || loc == "" {
		return nil, &RejectedError{Provider: "esewa", Reason: fmt.Sprintf("no redirect in response (status %d)", resp.StatusCode)}
	}

	zap.L().Info("esewa initiate",
		zap.Int64("order_id", o.ID),
		zap.String("transaction_uuid", p.TransactionID))

	return &Initiation{RedirectURL: loc}, nil
}

func (e *Esewa) Verify(ctx context.Context, p *payment.Payment, o *order.Order) (Result, error) {
	q := url.Values{}
	q.Set("product_code", e.cfg.ProductCode)
	q.Set("total_amount", amountString(p.Amount))
	q.Set("transaction_uuid", p.TransactionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.StatusURL+"?"+q.Encode(), nil)
	if err != nil {
		return Failed, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return Failed, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Failed, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return Failed, &RejectedError{Provider: "esewa", Reason: fmt.Sprintf("status check returned %d", resp.StatusCode)}
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Failed, &RejectedError{Provider: "esewa", Reason: "unparseable status response"}
	}

	zap.L().Info("esewa verify",
		zap.Int64("order_id", o.ID),
		zap.String("transaction_uuid", p.TransactionID),
		zap.String("provider_status", body.Status))

	// Anything other than the provider's success token counts as failed.
	if body.Status == esewaSuccessStatus {
		return Paid, nil
	}
	return Failed, nil
}
