package dwayee

import (
	"reflect"
	"strings"

	"github.com/dwayee/storefront/pkg/types"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var schemaValidator = newSchemaValidator()

func newSchemaValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type cartEnvelope struct {
	types.UpstreamStatus
	Data *cartData `json:"data"`
}

type cartData struct {
	Items []cartItemWire `json:"items" validate:"required,dive"`
}

type cartItemWire struct {
	Medication medicationWire `json:"medication" validate:"required"`
	Quantity   int            `json:"quantity" validate:"gte=1"`
}

type medicationWire struct {
	ID       types.FlexibleID `json:"id" validate:"required"`
	Name     string           `json:"name"`
	Image    string           `json:"image"`
	Price    decimal.Decimal  `json:"price"`
	Pharmacy *struct {
		Name string `json:"name"`
	} `json:"pharmacy"`
}

type checkoutEnvelope struct {
	types.UpstreamStatus
	Data *struct {
		ID      types.FlexibleID `json:"id"`
		OrderID types.FlexibleID `json:"order_id"`
	} `json:"data"`
}

type loginEnvelope struct {
	types.UpstreamStatus
	Data *loginData `json:"data"`
}

type loginData struct {
	AccessToken  string   `json:"access_token" validate:"required"`
	RefreshToken string   `json:"refresh_token"`
	User         userWire `json:"user"`
}

type userWire struct {
	ID         types.FlexibleID `json:"id"`
	Name       string           `json:"name"`
	Email      string           `json:"email"`
	UserType   string           `json:"user_type"`
	PharmacyID types.FlexibleID `json:"pharmacy_id"`
}

type addressEnvelope struct {
	types.UpstreamStatus
	Data []addressWire `json:"data" validate:"required,dive"`
}

type addressWire struct {
	ID          types.FlexibleID `json:"id" validate:"required"`
	Name        string           `json:"name"`
	Address     string           `json:"address"`
	PostalCode  types.FlexibleID `json:"postal_code"`
	Phone       types.FlexibleID `json:"phone"`
	IsDefault   flexibleBool     `json:"is_default"`
	City        *namedWire       `json:"city"`
	Governorate *namedWire       `json:"governorate"`
}

type namedWire struct {
	Name string `json:"name"`
}

// flexibleBool accepts true/false as well as 0/1 and their string forms.
type flexibleBool bool

func (b *flexibleBool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(strings.TrimSpace(string(data)), `"`) {
	case "true", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}
