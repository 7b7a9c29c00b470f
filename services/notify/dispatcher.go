package notify

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/agrikart/api/models"
)

// Dispatcher queues transactional email for background delivery. Enqueueing
// never blocks the request that triggered it, and a delivery failure is
// logged, never surfaced to the caller.
type Dispatcher struct {
	mailer Mailer
	queue  chan Email
	log    *zap.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func NewDispatcher(mailer Mailer, queueSize int, log *zap.Logger) *Dispatcher {
	if queueSize < 1 {
		queueSize = 64
	}
	d := &Dispatcher{
		mailer: mailer,
		queue:  make(chan Email, queueSize),
		log:    log,
		done:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for e := range d.queue {
		if err := d.mailer.Send(e); err != nil {
			d.log.Error("email delivery failed",
				zap.String("to", e.To),
				zap.String("subject", e.Subject),
				zap.Error(err))
		}
	}
}

// Enqueue hands an email to the worker. When the queue is full the message is
// dropped with a log entry rather than stalling the request.
func (d *Dispatcher) Enqueue(e Email) {
	select {
	case d.queue <- e:
	default:
		d.log.Warn("notification queue full, dropping email",
			zap.String("to", e.To),
			zap.String("subject", e.Subject))
	}
}

// Close stops accepting mail and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	<-d.done
}

// OrderConfirmation enqueues the email sent when an order is placed.
func (d *Dispatcher) OrderConfirmation(o *models.Order, email string) {
	d.Enqueue(Email{
		To:      email,
		Subject: fmt.Sprintf("Order %s confirmed", o.ID.Hex()),
		Body:    orderConfirmationBody(o),
	})
}

// StatusUpdate enqueues the generic status-change email.
func (d *Dispatcher) StatusUpdate(o *models.Order, email string) {
	d.Enqueue(Email{
		To:      email,
		Subject: fmt.Sprintf("Order %s is now %s", o.ID.Hex(), o.Status),
		Body:    statusUpdateBody(o),
	})
}

// RefundConfirmation enqueues the email sent once a refund is processed.
func (d *Dispatcher) RefundConfirmation(o *models.Order, email string) {
	d.Enqueue(Email{
		To:      email,
		Subject: fmt.Sprintf("Refund processed for order %s", o.ID.Hex()),
		Body:    refundConfirmationBody(o),
	})
}

func orderConfirmationBody(o *models.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Thank you for your order!</h2>")
	fmt.Fprintf(&b, "<p>Order <b>%s</b> has been placed.</p><ul>", o.ID.Hex())
	for _, item := range o.Items {
		fmt.Fprintf(&b, "<li>%s &times; %d — ₹%.2f</li>", item.Name, item.Quantity, item.Subtotal)
	}
	fmt.Fprintf(&b, "</ul><p>Total: <b>₹%.2f</b> (%s)</p>", o.TotalAmount, o.PaymentMethod)
	return b.String()
}

func statusUpdateBody(o *models.Order) string {
	return fmt.Sprintf(
		"<p>Your order <b>%s</b> is now <b>%s</b>.</p><p>Total: ₹%.2f</p>",
		o.ID.Hex(), o.Status, o.TotalAmount)
}

func refundConfirmationBody(o *models.Order) string {
	return fmt.Sprintf(
		"<p>Your order <b>%s</b> was cancelled and a refund of <b>₹%.2f</b> has been initiated.</p><p>Refund reference: %s</p>",
		o.ID.Hex(), o.TotalAmount, o.RefundID)
}
