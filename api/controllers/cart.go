package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/dwayee/storefront/api/responses"
	"github.com/dwayee/storefront/api/validators"
	"github.com/dwayee/storefront/internal/cart"
	"github.com/dwayee/storefront/internal/session"
	pkgerrors "github.com/dwayee/storefront/pkg/errors"
	"github.com/dwayee/storefront/pkg/logger"
	"github.com/dwayee/storefront/pkg/types"
)

const maxMedicationIDLen = 64

type CartEngine interface {
	Snapshot() cart.Snapshot
	MaxQuantity() int
	Subscribe(fn func(cart.Snapshot)) func()
	Reload(ctx context.Context, sess *session.Session) error
	AddItem(ctx context.Context, sess *session.Session, medicationID string, quantity int) error
	UpdateQuantity(ctx context.Context, sess *session.Session, medicationID string, delta int) error
	RemoveItem(ctx context.Context, sess *session.Session, medicationID string) error
	Clear(ctx context.Context, sess *session.Session) error
}

// CartPresenter carries the display settings every cart response shares.
type CartPresenter struct {
	FreeShippingThreshold decimal.Decimal
	Currency              string
}

type cartLineResponse struct {
	MedicationID string          `json:"medication_id"`
	Name         string          `json:"name"`
	ImageURL     string          `json:"image_url,omitempty"`
	PharmacyName string          `json:"pharmacy_name,omitempty"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Quantity     int             `json:"quantity"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

type cartResponse struct {
	Lines                 []cartLineResponse `json:"lines"`
	ItemCount             int                `json:"item_count"`
	Subtotal              decimal.Decimal    `json:"subtotal"`
	FreeShippingThreshold decimal.Decimal    `json:"free_shipping_threshold"`
	FreeShippingRemaining decimal.Decimal    `json:"free_shipping_remaining"`
	Currency              string             `json:"currency"`
	MaxQuantity           int                `json:"max_quantity"`
	Version               uint64             `json:"version"`
}

func (p CartPresenter) view(snap cart.Snapshot, maxQty int) cartResponse {
	lines := make([]cartLineResponse, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		lines = append(lines, cartLineResponse{
			MedicationID: l.MedicationID,
			Name:         l.Name,
			ImageURL:     l.ImageURL,
			PharmacyName: l.PharmacyName,
			UnitPrice:    l.UnitPrice,
			Quantity:     l.Quantity,
			LineTotal:    l.LineTotal(),
		})
	}
	return cartResponse{
		Lines:                 lines,
		ItemCount:             snap.ItemCount(),
		Subtotal:              snap.Subtotal(),
		FreeShippingThreshold: p.FreeShippingThreshold,
		FreeShippingRemaining: snap.FreeShippingRemaining(p.FreeShippingThreshold),
		Currency:              p.Currency,
		MaxQuantity:           maxQty,
		Version:               snap.Version,
	}
}

type addItemRequest struct {
	MedicationID types.FlexibleID `json:"medication_id" validate:"required"`
	Quantity     int              `json:"quantity"`
}

type updateQuantityRequest struct {
	Delta int `json:"delta" validate:"ne=0"`
}

func CartShow(engine CartEngine, presenter CartPresenter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, presenter.view(engine.Snapshot(), engine.MaxQuantity()))
	}
}

func CartReload(engine CartEngine, sessions SessionProvider, presenter CartPresenter, logg *logger.Logger) http.HandlerFunc {
	return cartMutation(engine, sessions, presenter, logg, func(r *http.Request, sess *session.Session) error {
		return engine.Reload(r.Context(), sess)
	})
}

// CartAddItem adds quantity units (default 1) of a medication.
func CartAddItem(engine CartEngine, sessions SessionProvider, presenter CartPresenter, logg *logger.Logger) http.HandlerFunc {
	return cartMutation(engine, sessions, presenter, logg, func(r *http.Request, sess *session.Session) error {
		var req addItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return err
		}
		id := validators.SanitizeString(req.MedicationID.String(), maxMedicationIDLen)
		if id == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "medication_id is required")
		}
		qty := req.Quantity
		if qty == 0 {
			qty = 1
		}
		return engine.AddItem(r.Context(), sess, id, qty)
	})
}

func CartUpdateQuantity(engine CartEngine, sessions SessionProvider, presenter CartPresenter, logg *logger.Logger) http.HandlerFunc {
	return cartMutation(engine, sessions, presenter, logg, func(r *http.Request, sess *session.Session) error {
		id, err := medicationParam(r)
		if err != nil {
			return err
		}
		var req updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			return err
		}
		return engine.UpdateQuantity(r.Context(), sess, id, req.Delta)
	})
}

func CartRemoveItem(engine CartEngine, sessions SessionProvider, presenter CartPresenter, logg *logger.Logger) http.HandlerFunc {
	return cartMutation(engine, sessions, presenter, logg, func(r *http.Request, sess *session.Session) error {
		id, err := medicationParam(r)
		if err != nil {
			return err
		}
		return engine.RemoveItem(r.Context(), sess, id)
	})
}

func CartClear(engine CartEngine, sessions SessionProvider, presenter CartPresenter, logg *logger.Logger) http.HandlerFunc {
	return cartMutation(engine, sessions, presenter, logg, func(r *http.Request, sess *session.Session) error {
		return engine.Clear(r.Context(), sess)
	})
}

// cartMutation runs op against the current session and answers with the resulting cart.
func cartMutation(engine CartEngine, sessions SessionProvider, presenter CartPresenter, logg *logger.Logger, op func(*http.Request, *session.Session) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil || sessions == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart engine unavailable"))
			return
		}
		sess := sessions.Current()
		if err := op(r, sess); err != nil {
			writeSessionError(r.Context(), logg, w, sessions, sess, err)
			return
		}
		responses.WriteSuccess(w, presenter.view(engine.Snapshot(), engine.MaxQuantity()))
	}
}

func medicationParam(r *http.Request) (string, error) {
	id := validators.SanitizeString(chi.URLParam(r, "medicationID"), maxMedicationIDLen)
	if id == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "medication id is required")
	}
	return id, nil
}
