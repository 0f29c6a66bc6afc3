package reminder

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"slices"
	"strings"
	"time"

	"github.com/felo/warranty-tracker/internal/db"
	"github.com/felo/warranty-tracker/internal/notify"
)

//go:embed templates/digest.html
var templateFS embed.FS

var digestTemplate = template.Must(template.ParseFS(templateFS, "templates/digest.html"))

// UrgentDays marks reminders for warranties ending this soon as urgent
const UrgentDays = 3

const dateLayout = "Jan 2, 2006"

type digestRow struct {
	Name     string
	Vendor   string
	Expiry   string
	DaysLeft int
	Color    template.CSS
}

type digestData struct {
	Urgent     int
	UrgentLine string
	Rows       []digestRow
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func urgencyColor(daysLeft int) template.CSS {
	switch {
	case daysLeft <= UrgentDays:
		return "#d32f2f"
	case daysLeft <= 7:
		return "#f57c00"
	default:
		return "#388e3c"
	}
}

// BuildDigest groups products into one reminder message, soonest expiry
// first. It returns nil when there is nothing to send.
func BuildDigest(products []*db.Product, now time.Time, to []string) (*notify.Message, error) {
	if len(products) == 0 {
		return nil, nil
	}

	sorted := slices.Clone(products)
	slices.SortStableFunc(sorted, func(a, b *db.Product) int {
		return a.WarrantyEndDate.Compare(b.WarrantyEndDate)
	})

	data := digestData{}
	var text strings.Builder
	text.WriteString("The following products have warranties expiring soon:\n\n")

	for _, p := range sorted {
		left := p.DaysUntilExpiry(now)
		if left <= UrgentDays {
			data.Urgent++
		}
		row := digestRow{
			Name:     p.Name,
			Vendor:   p.Vendor,
			Expiry:   p.WarrantyEndDate.Format(dateLayout),
			DaysLeft: left,
			Color:    urgencyColor(left),
		}
		data.Rows = append(data.Rows, row)
		fmt.Fprintf(&text, "- %s (%s): expires %s, %s left\n", row.Name, row.Vendor, row.Expiry, plural(left, "day"))
	}

	if data.Urgent > 0 {
		verb := "are"
		if data.Urgent == 1 {
			verb = "is"
		}
		data.UrgentLine = fmt.Sprintf("%s %s expiring within %d days!", plural(data.Urgent, "product"), verb, UrgentDays)
	}

	var html bytes.Buffer
	if err := digestTemplate.Execute(&html, data); err != nil {
		return nil, fmt.Errorf("failed to render reminder digest: %w", err)
	}

	body := text.String()
	if data.UrgentLine != "" {
		body = data.UrgentLine + "\n\n" + body
	}

	return &notify.Message{
		To:       to,
		Subject:  fmt.Sprintf("Warranty Alert: %s expiring soon", plural(len(sorted), "product")),
		TextBody: body,
		HTMLBody: html.String(),
	}, nil
}
