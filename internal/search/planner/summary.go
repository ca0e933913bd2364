package planner

import (
	"fmt"
	"strings"
	"time"

	"campus_marketplace/internal/listings/repository"
)

// Summary describes the optional filters of a request for response metadata.
type Summary struct {
	Count       int
	Description string
}

// Summarize counts each present filter group once, no matter how many values
// it holds, and renders a stable description.
func Summarize(f repository.Filters) Summary {
	parts := make([]string, 0, 5)

	if len(f.Categories) > 0 {
		values := make([]string, len(f.Categories))
		for i, c := range f.Categories {
			values[i] = string(c)
		}
		parts = append(parts, "Categories: ["+strings.Join(values, " ")+"]")
	}
	if len(f.Conditions) > 0 {
		values := make([]string, len(f.Conditions))
		for i, c := range f.Conditions {
			values[i] = string(c)
		}
		parts = append(parts, "Conditions: ["+strings.Join(values, " ")+"]")
	}
	if f.MinPriceCents != nil || f.MaxPriceCents != nil {
		low, high := "0", "∞"
		if f.MinPriceCents != nil {
			low = Dollars(*f.MinPriceCents)
		}
		if f.MaxPriceCents != nil {
			high = Dollars(*f.MaxPriceCents)
		}
		parts = append(parts, fmt.Sprintf("Price: $%s - $%s", low, high))
	}
	if location := strings.TrimSpace(f.Location); location != "" {
		parts = append(parts, "Location: "+location)
	}
	if f.CreatedFrom != nil {
		parts = append(parts, "Posted after: "+f.CreatedFrom.UTC().Format(time.RFC3339))
	}

	if len(parts) == 0 {
		return Summary{Count: 0, Description: "No filters"}
	}
	return Summary{Count: len(parts), Description: strings.Join(parts, ", ")}
}

// Dollars renders cents as a fixed two-decimal amount.
func Dollars(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
