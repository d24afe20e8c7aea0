// Package whatsapp builds wa.me deep links that hand a purchase intent over
// to a WhatsApp conversation with the store.
package whatsapp

import (
	"fmt"
	"net/url"
	"strings"
)

const baseURL = "https://wa.me/"

// BuildLink returns a wa.me deep link for the given phone number with the
// message pre-filled. The number keeps digits only (country code included).
func BuildLink(number, message string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)

	link := baseURL + digits
	if message != "" {
		link += "?text=" + url.QueryEscape(message)
	}
	return link
}

// FormatPrice renders a price in cents as a BRL amount, e.g. 1990 -> "R$ 19.90".
func FormatPrice(cents int64) string {
	return fmt.Sprintf("R$ %d.%02d", cents/100, cents%100)
}

// ResolveMessage picks the message sent for a product: the product's custom
// message wins, then the category template, then a default built from the
// product name and price.
func ResolveMessage(productName string, priceCents int64, customMessage, categoryTemplate string) string {
	if msg := strings.TrimSpace(customMessage); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(categoryTemplate); msg != "" {
		return msg
	}
	return fmt.Sprintf("Olá! Gostaria de informações sobre o produto:\n\n*%s*\nPreço: %s",
		productName, FormatPrice(priceCents))
}
