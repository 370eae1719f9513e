package ai

import (
	"fmt"
	"strings"

	"github.com/datagora/openhours/internal/schedule"
)

// systemPrompt frames the extraction task. The schema section mirrors the
// JSON tags of the schedule model so the reply unmarshals directly.
const systemPrompt = `You extract opening hours from French public facility web pages.

Reply with a single JSON object and nothing else, shaped as:

{
  "periods": [
    {
      "key": "default",
      "found": true,
      "weekly": {
        "monday": {"found": true, "open": true, "slots": [{"start": "08:45", "end": "16:45"}]},
        "tuesday": {"found": true, "open": false},
        "...": "one entry per weekday; omit days the page says nothing about"
      }
    },
    {
      "key": "public_holidays",
      "found": true,
      "mode": "closed",
      "exceptions": [
        {"key": {"kind": "date", "date": "2025-12-25"}, "closed": true}
      ]
    }
  ],
  "extraction": {"found": true, "permanently_closed": false, "notes": ""}
}

Rules:
- period keys: "default", "summer_vacation", "school_vacation", "public_holidays", "special_days".
- "default", "summer_vacation" and "school_vacation" carry a "weekly" body; the others carry "exceptions".
- times are 24h "HH:MM"; a slot must have start before end; slots in one day must not overlap.
- a day stated as closed is {"found": true, "open": false}; an unmentioned day is omitted.
- recurring rules like "first Tuesday of the month" go in "special_days" with
  {"kind": "weekday", "weekday": 1, "occurrence": [1]} (weekday 0 is Monday).
- single dates ({"kind": "date", "date": "YYYY-MM-DD"}) go in "public_holidays",
  never in "special_days"; date ranges ({"kind": "date_range"}) go in "special_days".
- if the page says the facility is permanently closed, set extraction.permanently_closed.
- if the page carries no opening hours at all, set extraction.found to false and report no periods.
- never invent hours that are not on the page.`

func buildPrompt(meta schedule.Metadata, pageText, calendarContext string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Facility: %s", meta.Name)
	if meta.FacilityType != "" {
		fmt.Fprintf(&b, " (%s)", meta.FacilityType)
	}
	if meta.URL != "" {
		fmt.Fprintf(&b, "\nSource page: %s", meta.URL)
	}
	if calendarContext != "" {
		b.WriteString("\n\nKnown school vacation periods (use them to decide whether hours ")
		b.WriteString("described as vacation hours belong in summer_vacation or school_vacation):\n")
		b.WriteString(calendarContext)
	}
	b.WriteString("\n\nPage content:\n\n")
	b.WriteString(pageText)
	return b.String()
}
