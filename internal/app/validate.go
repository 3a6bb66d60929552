package app

import (
	"regexp"
	"strings"
)

// LeadSubmission is the inbound shape of a contact-form submission. Webhook
// payloads are mapped into the same shape before validation so both intake
// paths enforce identical rules.
type LeadSubmission struct {
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Email         string `json:"email"`
	Whatsapp      string `json:"whatsapp"`
	Country       string `json:"country"`
	ContactMethod string `json:"contactMethod"`
	Timeframe     string `json:"timeframe"`
	PropertyType  string `json:"propertyType"`

	Source         string `json:"source"`
	CampaignID     string `json:"campaign_id"`
	ExternalLeadID string `json:"lead_id"`
}

var (
	emailPattern      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phoneNoisePattern = regexp.MustCompile(`[\s\-\(\)]+`)
	phonePattern      = regexp.MustCompile(`^\+?[0-9]{8,15}$`)
)

// validateSubmission checks the seven required fields plus email and phone
// formats. Missing fields are all named in one message so the client can fix
// them in a single round trip.
func validateSubmission(sub LeadSubmission) error {
	required := []struct {
		name  string
		value string
	}{
		{"firstName", sub.FirstName},
		{"lastName", sub.LastName},
		{"email", sub.Email},
		{"whatsapp", sub.Whatsapp},
		{"country", sub.Country},
		{"contactMethod", sub.ContactMethod},
		{"timeframe", sub.Timeframe},
	}
	var missing []string
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return validationError("Missing required fields: %s", strings.Join(missing, ", "))
	}
	if !emailPattern.MatchString(sub.Email) {
		return validationError("Invalid email format")
	}
	if !phonePattern.MatchString(normalizePhone(sub.Whatsapp)) {
		return validationError("Invalid WhatsApp number format")
	}
	return nil
}

func normalizePhone(raw string) string {
	return phoneNoisePattern.ReplaceAllString(raw, "")
}
