package servicerequest

import (
	"net/url"
	"strings"
)

const (
	DefaultWhatsAppNumber  = "529631539156"
	DefaultWhatsAppMessage = "Hola, necesito ayuda con mi servicio."
)

// WhatsAppLink builds a wa.me deep link. Non-digits are stripped from number.
func WhatsAppLink(number, message string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	link := "https://wa.me/" + digits
	if message != "" {
		link += "?text=" + strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	}
	return link
}
