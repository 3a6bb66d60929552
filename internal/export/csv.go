// Package export renders lead listings as downloadable CSV and XLSX files.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"skyline/api/internal/store"
)

var leadHeader = []string{
	"Date", "Time", "First Name", "Last Name", "Email", "WhatsApp",
	"Country", "Contact Method", "Buying Timeframe", "Property Type",
	"IP Address", "User Agent",
}

func leadRow(lead store.Lead) []string {
	return []string{
		lead.CreatedAt.Format("2006-01-02"),
		lead.CreatedAt.Format("15:04:05"),
		lead.FirstName,
		lead.LastName,
		lead.Email,
		lead.Whatsapp,
		lead.Country,
		lead.ContactMethod,
		lead.Timeframe,
		lead.PropertyType,
		lead.IPAddress,
		lead.UserAgent,
	}
}

// LeadsCSV renders leads (in the order given) as a CSV file with a fixed
// header row.
func LeadsCSV(leads []store.Lead) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write(leadHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, lead := range leads {
		if err := writer.Write(leadRow(lead)); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename names a download after the current date, e.g. leads_20260829.csv.
func Filename(ext string) string {
	return fmt.Sprintf("leads_%s.%s", time.Now().Format("20060102"), ext)
}
