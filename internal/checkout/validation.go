package checkout

import (
	"net/mail"
	"strings"
	"unicode"

	"github.com/google/uuid"

	pkgerrors "github.com/printloom/storefront/pkg/errors"
)

const (
	phoneDigits = 10
	zipDigits   = 5
)

// GuestCredentials are validated at step 1 and again at submission; they are
// never written into the session document.
type GuestCredentials struct {
	Password        string
	PasswordConfirm string
}

// ValidateCustomer gates the step 1→2 transition.
func ValidateCustomer(details CustomerDetails, creds GuestCredentials) error {
	problems := map[string]string{}

	if parts := strings.Fields(details.FullName); len(parts) < 2 {
		problems["full_name"] = "first and last name are required"
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(details.Email)); err != nil {
		problems["email"] = "a valid email is required"
	}
	if digits := digitsOf(details.Phone); len(digits) != phoneDigits {
		problems["phone"] = "phone must be exactly 10 digits"
	}
	if details.IsGuest {
		if strings.TrimSpace(creds.Password) == "" {
			problems["password"] = "a password is required to create your account"
		} else if creds.PasswordConfirm != "" && creds.Password != creds.PasswordConfirm {
			problems["password_confirm"] = "passwords do not match"
		}
	}

	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer details are incomplete").WithDetails(problems)
	}
	return nil
}

// ValidateShipping gates the step 2→3 transition.
func ValidateShipping(details ShippingDetails) error {
	problems := map[string]string{}

	for field, value := range map[string]string{
		"name":    details.Name,
		"address": details.Address,
		"city":    details.City,
		"state":   details.State,
	} {
		if strings.TrimSpace(value) == "" {
			problems[field] = "required"
		}
	}
	if digits := digitsOf(details.Zip); len(digits) != zipDigits || digits != strings.TrimSpace(details.Zip) {
		problems["zip"] = "zip must be exactly 5 digits"
	}
	if details.ShippingOptionID == uuid.Nil || strings.TrimSpace(details.Carrier) == "" {
		problems["shipping_option"] = "a carrier must be chosen"
	}

	if len(problems) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping details are incomplete").WithDetails(problems)
	}
	return nil
}

func digitsOf(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
