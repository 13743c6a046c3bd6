package controllers

import (
	"net/http"

	"github.com/dwayee/storefront/api/responses"
	"github.com/dwayee/storefront/internal/address"
	"github.com/dwayee/storefront/pkg/logger"
)

type addressResponse struct {
	address.Address
	Label string `json:"label"`
}

type addressListResponse struct {
	Addresses []addressResponse `json:"addresses"`
	DefaultID string            `json:"default_id,omitempty"`
}

// AddressList backs the checkout address picker.
func AddressList(svc address.Service, sessions SessionProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessions.Current()
		all, err := svc.List(r.Context(), sess)
		if err != nil {
			writeSessionError(r.Context(), logg, w, sessions, sess, err)
			return
		}

		out := addressListResponse{Addresses: make([]addressResponse, 0, len(all))}
		for _, a := range all {
			out.Addresses = append(out.Addresses, addressResponse{Address: a, Label: a.Label()})
			if a.IsDefault && out.DefaultID == "" {
				out.DefaultID = a.ID
			}
		}
		if out.DefaultID == "" && len(all) > 0 {
			out.DefaultID = all[0].ID
		}
		responses.WriteSuccess(w, out)
	}
}
