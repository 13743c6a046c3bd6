package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dwayee/storefront/internal/cart"
	"github.com/dwayee/storefront/internal/session"
	"github.com/dwayee/storefront/pkg/dwayee"
	"github.com/dwayee/storefront/pkg/enums"
	pkgerrors "github.com/dwayee/storefront/pkg/errors"
	"github.com/dwayee/storefront/pkg/logger"
	"github.com/dwayee/storefront/pkg/metrics"
	"github.com/go-playground/validator/v10"
)

const (
	opCheckout = "checkout"

	msgEmptyCart      = "Your cart is empty, please add items before placing an order."
	msgMissingAddress = "Please select a shipping address."
	msgRejected       = "Can not checkout empty cart"

	maxRejectionLen = 300
)

type PaymentMethod = enums.PaymentMethod

const (
	PaymentCashOnDelivery = enums.PaymentMethodCashOnDelivery
	PaymentCreditCard     = enums.PaymentMethodCreditCard
)

// Request is what the shopper picked on the checkout page.
type Request struct {
	AddressID     string        `json:"address_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Notes         string        `json:"notes" validate:"max=1000"`
}

// Result is handed back after the order exists server-side.
type Result struct {
	OrderID string
	Message string
	// CartCleared is false when the server cart could not be emptied afterwards.
	CartCleared bool
}

// CartEngine is the part of the cart engine checkout drives.
type CartEngine interface {
	Snapshot() cart.Snapshot
	Clear(ctx context.Context, sess *session.Session) error
	ResetLocal()
}

// RemoteCheckout submits orders to the API.
type RemoteCheckout interface {
	Checkout(ctx context.Context, token string, form dwayee.CheckoutForm) (*dwayee.CheckoutResult, error)
}

type Options struct {
	Logger  *logger.Logger
	Metrics *metrics.CartMetrics
}

// Service turns the current cart into an order, at most one at a time.
type Service struct {
	cart     CartEngine
	remote   RemoteCheckout
	logg     *logger.Logger
	metrics  *metrics.CartMetrics
	validate *validator.Validate
	inFlight atomic.Bool
}

func NewService(cartEngine CartEngine, remote RemoteCheckout, opts Options) (*Service, error) {
	if cartEngine == nil {
		return nil, fmt.Errorf("cart engine required")
	}
	if remote == nil {
		return nil, fmt.Errorf("checkout client required")
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Service{
		cart:     cartEngine,
		remote:   remote,
		logg:     opts.Logger,
		metrics:  opts.Metrics,
		validate: validator.New(),
	}, nil
}

// Checkout places the order. The local cart is emptied only once the API has
// confirmed the order; a failed cleanup of the server cart does not fail checkout.
func (s *Service) Checkout(ctx context.Context, sess *session.Session, req Request) (res *Result, err error) {
	ctx = s.logg.WithOperation(ctx, opCheckout)
	start := time.Now()
	defer func() {
		code := ""
		if err != nil {
			code = string(pkgerrors.CodeOf(err))
		}
		s.metrics.Track(opCheckout, start, code)
	}()

	if !sess.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthenticated, "please sign in to place an order")
	}
	ctx = s.logg.WithUserID(ctx, sess.Profile.ID)

	snap := s.cart.Snapshot()
	if snap.IsEmpty() {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, msgEmptyCart)
	}
	req.AddressID = strings.TrimSpace(req.AddressID)
	if req.AddressID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeMissingAddress, msgMissingAddress)
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = PaymentCashOnDelivery
	}
	if !req.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method must be cash_on_delivery or credit_card")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "notes must be at most 1000 characters")
	}

	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "checkout already in progress")
	}
	defer s.inFlight.Store(false)

	ctx = s.logg.WithFields(ctx, map[string]any{
		"address_id":     req.AddressID,
		"payment_method": string(req.PaymentMethod),
		"cart_lines":     len(snap.Lines),
		"cart_subtotal":  snap.Subtotal().String(),
	})

	out, err := s.remote.Checkout(ctx, sess.Token, dwayee.CheckoutForm{
		AddressID:     req.AddressID,
		PaymentMethod: string(req.PaymentMethod),
		Notes:         req.Notes,
	})
	if err != nil {
		s.logg.Error(ctx, "checkout.submit_failed", err)
		if pkgerrors.IsCode(err, pkgerrors.CodeUnauthenticated) {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeCheckoutRejected, err, rejectionMessage(err))
	}
	if !out.Success {
		msg := strings.TrimSpace(out.Message)
		if msg == "" {
			msg = msgRejected
		}
		s.logg.Warn(s.logg.WithField(ctx, "api_message", out.Message), "checkout.rejected")
		return nil, pkgerrors.New(pkgerrors.CodeCheckoutRejected, msg)
	}

	result := &Result{OrderID: out.OrderID, Message: out.Message, CartCleared: true}
	if err := s.cart.Clear(ctx, sess); err != nil {
		result.CartCleared = false
		s.logg.WarnErr(ctx, "checkout.cart_cleanup_failed", err)
	}
	s.cart.ResetLocal()

	s.logg.Info(s.logg.WithField(ctx, "order_id", result.OrderID), "checkout.completed")
	return result, nil
}

// rejectionMessage is the API's own reason for refusing the order when it gave
// a readable one with a client error status, else the default.
func rejectionMessage(err error) string {
	var upstream *pkgerrors.UpstreamError
	if !errors.As(err, &upstream) {
		return msgRejected
	}
	if upstream.Status < http.StatusBadRequest || upstream.Status >= http.StatusInternalServerError || upstream.Status == http.StatusUnauthorized {
		return msgRejected
	}
	msg := strings.TrimSpace(upstream.Message)
	if msg == "" || strings.HasPrefix(msg, "{") || strings.HasPrefix(msg, "<") || len(msg) > maxRejectionLen {
		return msgRejected
	}
	return msg
}
