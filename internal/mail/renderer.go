package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"guesthouse/internal/models"
)

// Kind names a notification template.
type Kind string

const (
	KindConfirmation        Kind = "confirmation"
	KindAdminNotification   Kind = "admin-notification"
	KindContactConfirmation Kind = "contact-confirmation"
	KindContactAdmin        Kind = "contact-admin"
	KindDateChange          Kind = "date-change"
	KindRefund              Kind = "refund"
	KindPaymentReceived     Kind = "payment-received"
	KindPaymentAdmin        Kind = "payment-admin"
	KindDonationThanks      Kind = "donation-thanks"
)

// Kinds lists every template kind.
var Kinds = []Kind{
	KindConfirmation,
	KindAdminNotification,
	KindContactConfirmation,
	KindContactAdmin,
	KindDateChange,
	KindRefund,
	KindPaymentReceived,
	KindPaymentAdmin,
	KindDonationThanks,
}

//go:embed templates/*.html
var templateFS embed.FS

// Renderer turns a kind and its data into a subject and HTML body.
type Renderer struct {
	tmpl     *template.Template
	siteName string
	currency string
}

func NewRenderer(siteName, currency string) (*Renderer, error) {
	tmpl, err := template.New("mail").
		Option("missingkey=zero").
		Funcs(template.FuncMap{"money": money}).
		ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse mail templates: %w", err)
	}
	for _, kind := range Kinds {
		if tmpl.Lookup(string(kind)+".html") == nil {
			return nil, fmt.Errorf("missing template for %s", kind)
		}
	}
	if siteName == "" {
		siteName = "Guesthouse"
	}
	if currency == "" {
		currency = models.DefaultCurrency
	}
	return &Renderer{tmpl: tmpl, siteName: siteName, currency: currency}, nil
}

func (r *Renderer) Render(kind Kind, data models.Payload) (string, string, error) {
	t := r.tmpl.Lookup(string(kind) + ".html")
	if t == nil {
		return "", "", fmt.Errorf("unknown mail kind %q", kind)
	}
	view := models.Payload{"site_name": r.siteName, "currency": r.currency}.Merge(data)

	var body bytes.Buffer
	if err := t.Execute(&body, view); err != nil {
		return "", "", fmt.Errorf("render %s: %w", kind, err)
	}
	return r.subject(kind, view), body.String(), nil
}

func (r *Renderer) subject(kind Kind, data models.Payload) string {
	id := data.GetString("id")
	switch kind {
	case KindConfirmation:
		return fmt.Sprintf("Booking Confirmation - %s", r.siteName)
	case KindAdminNotification:
		return fmt.Sprintf("New Booking: %s (%s)", data.GetString("name"), id)
	case KindContactConfirmation:
		return fmt.Sprintf("We received your message - %s", r.siteName)
	case KindContactAdmin:
		return fmt.Sprintf("New Contact Message: %s", data.GetString("subject"))
	case KindDateChange:
		return fmt.Sprintf("Booking %s: dates updated", id)
	case KindRefund:
		return fmt.Sprintf("Booking %s: refund issued", id)
	case KindPaymentReceived:
		return fmt.Sprintf("Payment received for booking %s", id)
	case KindPaymentAdmin:
		return fmt.Sprintf("Payment %s for booking %s", strings.ToUpper(data.GetString("payment_status")), id)
	case KindDonationThanks:
		return fmt.Sprintf("Thank you for supporting %s", r.siteName)
	default:
		return r.siteName
	}
}

func money(v any) string {
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf("%.2f", n)
	case float32:
		return fmt.Sprintf("%.2f", n)
	case int:
		return fmt.Sprintf("%d.00", n)
	case int64:
		return fmt.Sprintf("%d.00", n)
	case nil:
		return "0.00"
	default:
		return fmt.Sprint(n)
	}
}
