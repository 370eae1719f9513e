// Package pipeline runs the verification loop over a facility list: fetch
// the page, reduce it to Markdown, extract a schedule, encode it, decode the
// dataset's reference string and compare the two. Each facility fails alone;
// a run always completes and persists whatever it could establish.
package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/datagora/openhours/internal/schedule"
)

// Facility is one row of the input dataset: identity, the page to verify
// and the reference opening_hours string on record.
type Facility struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	FacilityType   string `json:"facility_type"`
	URL            string `json:"url"`
	Timezone       string `json:"timezone,omitempty"`
	ReferenceHours string `json:"opening_hours,omitempty"`
}

// Metadata converts the facility row into schedule metadata.
func (f Facility) Metadata() schedule.Metadata {
	return schedule.Metadata{
		ID:           f.ID,
		Name:         f.Name,
		FacilityType: f.FacilityType,
		URL:          f.URL,
		Timezone:     f.Timezone,
	}
}

// LoadFacilities reads a facility list. The format follows the file
// extension: .csv parses as a headed CSV export, anything else as JSON.
func LoadFacilities(path string) ([]Facility, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read facility list %s", path)
	}

	var facilities []Facility
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		facilities, err = parseFacilityCSV(data)
	} else {
		err = json.Unmarshal(data, &facilities)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse facility list %s", path)
	}

	for i, f := range facilities {
		if f.ID == "" {
			return nil, errors.Errorf("facility %d has no id", i)
		}
	}
	return facilities, nil
}

// parseFacilityCSV reads the dataset CSV export. The header row names the
// columns; unknown columns are ignored so extra dataset fields do not break
// the load.
func parseFacilityCSV(data []byte) ([]Facility, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "missing header row")
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(strings.ToLower(name))] = i
	}
	if _, ok := columns["id"]; !ok {
		return nil, errors.New("header row has no id column")
	}

	field := func(row []string, name string) string {
		i, ok := columns[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var facilities []Facility
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		facilities = append(facilities, Facility{
			ID:             field(row, "id"),
			Name:           field(row, "name"),
			FacilityType:   field(row, "facility_type"),
			URL:            field(row, "url"),
			Timezone:       field(row, "timezone"),
			ReferenceHours: field(row, "opening_hours"),
		})
	}
	return facilities, nil
}
