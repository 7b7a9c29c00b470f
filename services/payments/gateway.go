package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"
)

var (
	// ErrGatewayUnavailable is returned when the gateway is not configured or
	// cannot be reached.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// Intent is a checkout session created at the gateway. Amount is in the
// currency's minor unit (paise for INR), matching what the gateway reports.
type Intent struct {
	ID       string
	Amount   int64
	Currency string
}

// Gateway is the payment processor used by the order flow. Implementations
// are constructed once at startup and injected; nothing holds a process-wide
// client.
type Gateway interface {
	CreateOrder(ctx context.Context, amount float64, currency string) (*Intent, error)
	FetchOrder(ctx context.Context, id string) (*Intent, error)
	// Refund refunds a captured payment in full or in part and returns the
	// gateway's refund id. Notes travel to the gateway for reconciliation.
	Refund(ctx context.Context, paymentID string, amount float64, notes map[string]interface{}) (string, error)
	VerifySignature(gatewayOrderID, paymentID, signature string) bool
	KeyID() string
}

// Sign computes the checkout signature the gateway attaches to a completed
// payment: hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func Sign(secret, gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// ToMinorUnits converts a decimal amount to the smallest currency unit.
func ToMinorUnits(amount float64) int64 {
	return decimal.NewFromFloat(amount).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Razorpay implements Gateway over the Razorpay SDK.
type Razorpay struct {
	client *razorpay.Client
	keyID  string
	secret string
}

// NewRazorpay builds a gateway client from API credentials.
func NewRazorpay(keyID, secret string) (*Razorpay, error) {
	if keyID == "" || secret == "" {
		return nil, ErrGatewayUnavailable
	}
	return &Razorpay{
		client: razorpay.NewClient(keyID, secret),
		keyID:  keyID,
		secret: secret,
	}, nil
}

var _ Gateway = (*Razorpay)(nil)

func (g *Razorpay) KeyID() string {
	return g.keyID
}

func (g *Razorpay) CreateOrder(_ context.Context, amount float64, currency string) (*Intent, error) {
	if currency == "" {
		currency = "INR"
	}
	data := map[string]interface{}{
		"amount":   ToMinorUnits(amount),
		"currency": currency,
		"receipt":  "rcpt_" + uuid.NewString(),
	}
	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", err)
	}
	return intentFromBody(body)
}

func (g *Razorpay) FetchOrder(_ context.Context, id string) (*Intent, error) {
	body, err := g.client.Order.Fetch(id, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay fetch order: %w", err)
	}
	return intentFromBody(body)
}

func (g *Razorpay) Refund(_ context.Context, paymentID string, amount float64, notes map[string]interface{}) (string, error) {
	data := map[string]interface{}{}
	if len(notes) > 0 {
		data["notes"] = notes
	}
	body, err := g.client.Payment.Refund(paymentID, int(ToMinorUnits(amount)), data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay refund: %w", err)
	}
	refundID, _ := body["id"].(string)
	if refundID == "" {
		return "", fmt.Errorf("razorpay refund: missing refund id in response")
	}
	return refundID, nil
}

func (g *Razorpay) VerifySignature(gatewayOrderID, paymentID, signature string) bool {
	expected := Sign(g.secret, gatewayOrderID, paymentID)
	return hmac.Equal([]byte(signature), []byte(expected))
}

func intentFromBody(body map[string]interface{}) (*Intent, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay: missing order id in response")
	}
	currency, _ := body["currency"].(string)
	return &Intent{ID: id, Amount: amountFromBody(body["amount"]), Currency: currency}, nil
}

// The SDK decodes JSON numbers as float64.
func amountFromBody(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
