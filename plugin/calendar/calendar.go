// Package calendar queries the French public reference calendars: the
// national public holiday API and the school vacation records of the
// education ministry. The pipeline uses them to turn a "closed on public
// holidays" statement into the explicit dates a reference string can carry.
package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/datagora/openhours/internal/schedule"
)

// DefaultZone is the holiday calendar covering mainland France.
const DefaultZone = "metropole"

// Holiday is one public holiday.
type Holiday struct {
	Date schedule.Date
	Name string
}

// Vacation is one school vacation span for one zone.
type Vacation struct {
	Label      string
	Zone       string
	SchoolYear string
	Start      schedule.Date
	End        schedule.Date
}

// Options configures a Client.
type Options struct {
	// HolidaysBaseURL defaults to https://calendrier.api.gouv.fr.
	HolidaysBaseURL string
	// VacationsBaseURL defaults to https://data.education.gouv.fr.
	VacationsBaseURL string
	Client           *http.Client
}

// Client fetches the reference calendars.
type Client struct {
	http          *http.Client
	holidaysBase  string
	vacationsBase string
}

// New creates a Client.
func New(opts Options) *Client {
	c := &Client{
		http:          opts.Client,
		holidaysBase:  opts.HolidaysBaseURL,
		vacationsBase: opts.VacationsBaseURL,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 15 * time.Second}
	}
	if c.holidaysBase == "" {
		c.holidaysBase = "https://calendrier.api.gouv.fr"
	}
	if c.vacationsBase == "" {
		c.vacationsBase = "https://data.education.gouv.fr"
	}
	return c
}

// PublicHolidays returns the public holidays of one year, sorted by date.
// The API serves a flat {"YYYY-MM-DD": "name"} object per zone and year.
func (c *Client) PublicHolidays(ctx context.Context, zone string, year int) ([]Holiday, error) {
	if zone == "" {
		zone = DefaultZone
	}
	u := fmt.Sprintf("%s/jours-feries/%s/%d.json", c.holidaysBase, url.PathEscape(zone), year)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var raw map[string]string
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errors.Wrap(err, "unexpected holiday payload")
	}

	holidays := make([]Holiday, 0, len(raw))
	for ds, name := range raw {
		d, err := schedule.ParseDate(ds)
		if err != nil {
			return nil, errors.Wrapf(err, "unexpected holiday date %q", ds)
		}
		holidays = append(holidays, Holiday{Date: d, Name: name})
	}
	sort.Slice(holidays, func(i, j int) bool { return holidays[i].Date.Before(holidays[j].Date) })
	return holidays, nil
}

// vacationRecords is the opendatasoft records envelope.
type vacationRecords struct {
	TotalCount int `json:"total_count"`
	Results    []struct {
		Description   string `json:"description"`
		Zones         string `json:"zones"`
		AnneeScolaire string `json:"annee_scolaire"`
		StartDate     string `json:"start_date"`
		EndDate       string `json:"end_date"`
	} `json:"results"`
}

// SchoolVacations returns the vacation spans of one zone and school year
// ("Zone A".."Zone C", "2024-2025"), sorted by start date.
func (c *Client) SchoolVacations(ctx context.Context, zone, schoolYear string) ([]Vacation, error) {
	q := url.Values{}
	q.Set("where", fmt.Sprintf("zones=%q AND annee_scolaire=%q", zone, schoolYear))
	q.Set("limit", "50")
	u := c.vacationsBase + "/api/explore/v2.1/catalog/datasets/fr-en-calendrier-scolaire/records?" + q.Encode()

	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var records vacationRecords
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, errors.Wrap(err, "unexpected vacation payload")
	}

	vacations := make([]Vacation, 0, len(records.Results))
	for _, r := range records.Results {
		start, err := parseAPIDate(r.StartDate)
		if err != nil {
			return nil, err
		}
		end, err := parseAPIDate(r.EndDate)
		if err != nil {
			return nil, err
		}
		vacations = append(vacations, Vacation{
			Label:      r.Description,
			Zone:       r.Zones,
			SchoolYear: r.AnneeScolaire,
			Start:      start,
			End:        end,
		})
	}
	sort.Slice(vacations, func(i, j int) bool { return vacations[i].Start.Before(vacations[j].Start) })
	return vacations, nil
}

// parseAPIDate accepts the timestamp form the records API serves and the
// plain date form older exports use.
func parseAPIDate(s string) (schedule.Date, error) {
	if len(s) >= 10 {
		if d, err := schedule.ParseDate(s[:10]); err == nil {
			return d, nil
		}
	}
	return schedule.Date{}, errors.Errorf("unexpected calendar date %q", s)
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build calendar request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "calendar request failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("calendar request %s returned %d", u, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read calendar response")
	}
	return body, nil
}

// SpanSummary renders vacation spans one per line, the form the extraction
// prompt consumes.
func SpanSummary(vacations []Vacation) string {
	lines := make([]string, len(vacations))
	for i, v := range vacations {
		lines[i] = fmt.Sprintf("- %s (%s): %s to %s", v.Label, v.Zone, v.Start, v.End)
	}
	return strings.Join(lines, "\n")
}

// SeedPublicHolidays expands a period-wide "closed on public holidays" into
// explicit closed dates, which the reference grammar can carry. Dates the
// schedule already describes keep their authored hours.
func SeedPublicHolidays(s *schedule.Schedule, holidays []Holiday) {
	p := s.Period(schedule.PeriodPublicHolidays)
	if p == nil || !p.Found || p.Mode != schedule.ModeClosed {
		return
	}
	for _, h := range holidays {
		key := schedule.DateKey(h.Date)
		if p.Entry(key) != nil {
			continue
		}
		p.SetEntry(schedule.ExceptionEntry{Key: key, Closed: true})
	}
}
