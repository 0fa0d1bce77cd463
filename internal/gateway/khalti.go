package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/prajjwolcodes/KinBech/internal/config"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/order"
	"github.com/prajjwolcodes/KinBech/internal/datamodels/payment"
)

const khaltiSuccessStatus = "Completed"

// Khalti bearer-auth JSON adapter. Initiation posts a JSON payload authorized
// by the static merchant secret key; the response carries the hosted payment
// URL plus a pidx handle used for later status lookups.
type Khalti struct {
	cfg    config.KhaltiConfig
	client *http.Client
}

// NewKhalti creates the adapter with a bounded-timeout client.
func NewKhalti(cfg config.KhaltiConfig) *Khalti {
	return &Khalti{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout()},
	}
}

func (k *Khalti) Method() payment.Method {
	return payment.MethodKhalti
}

func (k *Khalti) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+k.cfg.SecretKey)

	resp, err := k.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return &RejectedError{Provider: "khalti", Reason: fmt.Sprintf("%s returned %d", path, resp.StatusCode)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RejectedError{Provider: "khalti", Reason: "unparseable response"}
	}
	return nil
}

func (k *Khalti) Initiate(ctx context.Context, p *payment.Payment, o *order.Order, targets RedirectTargets) (*Initiation, error) {
	returnURL := targets.SuccessURL
	if returnURL == "" {
		returnURL = k.cfg.ReturnURL
	}

	payload := map[string]any{
		"return_url":          returnURL,
		"website_url":         k.cfg.WebsiteURL,
		"amount":              p.Amount, // paisa
		"purchase_order_id":   p.TransactionID,
		"purchase_order_name": fmt.Sprintf("kinbech-order-%d", o.ID),
		"merchant_public_key": k.cfg.PublicKey,
	}

	var out struct {
		Pidx       string `json:"pidx"`
		PaymentURL string `json:"payment_url"`
	}
	if err := k.post(ctx, "/epayment/initiate/", payload, &out); err != nil {
		return nil, err
	}
	if out.PaymentURL == "" || out.Pidx == "" {
		return nil, &RejectedError{Provider: "khalti", Reason: "response missing payment_url or pidx"}
	}

	zap.L().Info("khalti initiate",
		zap.Int64("order_id", o.ID),
		zap.String("purchase_order_id", p.TransactionID),
		zap.String("pidx", out.Pidx))

	return &Initiation{RedirectURL: out.PaymentURL, ProviderRef: out.Pidx}, nil
}

func (k *Khalti) Verify(ctx context.Context, p *payment.Payment, o *order.Order) (Result, error) {
	if p.ProviderRef == "" {
		return Failed, &RejectedError{Provider: "khalti", Reason: "payment has no pidx to look up"}
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := k.post(ctx, "/epayment/lookup/", map[string]any{"pidx": p.ProviderRef}, &out); err != nil {
		return Failed, err
	}

	zap.L().Info("khalti verify",
		zap.Int64("order_id", o.ID),
		zap.String("pidx", p.ProviderRef),
		zap.String("provider_status", out.Status))

	// "Pending", "Expired", "User canceled" and everything else count as failed.
	if out.Status == khaltiSuccessStatus {
		return Paid, nil
	}
	return Failed, nil
}
