package report

import (
	"time"

	"github.com/gorilla/feeds"

	"github.com/datagora/openhours/store"
)

// DivergenceFeed builds an Atom feed of the facilities whose published
// hours diverged from the dataset in the given run. Subscribing to the feed
// is how dataset maintainers hear about stale entries.
func DivergenceFeed(baseURL string, run *store.Run, records []*store.ComparisonRecord) *feeds.Feed {
	feed := &feeds.Feed{
		Title:       "Opening hours divergences",
		Link:        &feeds.Link{Href: baseURL + "/report?run=" + run.ID},
		Description: "Facilities whose website hours differ from the dataset",
		Created:     time.Unix(run.StartedTs, 0).UTC(),
	}
	if run.FinishedTs > 0 {
		feed.Updated = time.Unix(run.FinishedTs, 0).UTC()
	}
	for _, r := range records {
		if r.Verdict != "different" {
			continue
		}
		title := r.Name
		if title == "" {
			title = r.FacilityID
		}
		feed.Items = append(feed.Items, &feeds.Item{
			Id:      "urn:openhours:" + run.ID + ":" + r.FacilityID,
			Title:   title + " hours differ from the dataset",
			Link:    &feeds.Link{Href: r.URL},
			Created: time.Unix(r.CreatedTs, 0).UTC(),
			Description: "Website: " + r.EncodedOSM +
				" / Dataset: " + r.ReferenceOSM,
			Content: r.DiffJSON,
		})
	}
	return feed
}
