package source

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ckanSearch is the package_search response body. Result is nil when the
// portal answered without a result object.
type ckanSearch struct {
	Success bool `json:"success"`
	Result  *struct {
		Count   int           `json:"count"`
		Results []ckanPackage `json:"results"`
	} `json:"result"`
}

type ckanPackage struct {
	Title            string `json:"title"`
	Name             string `json:"name"`
	MetadataModified string `json:"metadata_modified"`
	Notes            string `json:"notes"`
	Organization     *struct {
		Title string `json:"title"`
	} `json:"organization"`
	Resources []json.RawMessage `json:"resources"`
}

type ckanActivityList struct {
	Result []ckanActivity `json:"result"`
}

type ckanActivity struct {
	ID           string `json:"id"`
	Timestamp    string `json:"timestamp"`
	ActivityType string `json:"activity_type"`
	ObjectID     string `json:"object_id"`
	Data         struct {
		Package *struct {
			Title string `json:"title"`
		} `json:"package"`
	} `json:"data"`
}

func decodeSearch(body []byte) (ckanSearch, error) {
	var s ckanSearch
	if err := json.Unmarshal(body, &s); err != nil {
		return s, fmt.Errorf("decode package_search: %w", err)
	}
	return s, nil
}

func decodeActivity(body []byte) (ckanActivityList, error) {
	var a ckanActivityList
	if err := json.Unmarshal(body, &a); err != nil {
		return a, fmt.Errorf("decode activity list: %w", err)
	}
	return a, nil
}

// count returns the total hit count, or 0 when the response carried no
// result list.
func (s ckanSearch) count() int {
	if s.Result == nil || s.Result.Results == nil {
		return 0
	}
	return s.Result.Count
}

func (s ckanSearch) packages() []ckanPackage {
	if s.Result == nil {
		return nil
	}
	return s.Result.Results
}

// referenceDate returns the date part of metadata_modified of the last
// package whose title mentions keyword, or fallback.
func (s ckanSearch) referenceDate(keyword, fallback string) string {
	date := fallback
	for _, p := range s.packages() {
		if !strings.Contains(strings.ToLower(p.Title), keyword) || p.MetadataModified == "" {
			continue
		}
		date, _, _ = strings.Cut(p.MetadataModified, "T")
	}
	return date
}

func (p ckanPackage) toDataset(pageURL string) Dataset {
	d := Dataset{
		Title:        p.Title,
		Name:         p.Name,
		LastModified: p.MetadataModified,
		Resources:    len(p.Resources),
		Summary:      summarize(p.Notes, pageURL),
	}
	if p.Organization != nil {
		d.Organization = p.Organization.Title
	}
	return d
}

func (a ckanActivity) toActivity() Activity {
	act := Activity{
		ID:           a.ID,
		Timestamp:    a.Timestamp,
		ActivityType: a.ActivityType,
		PackageID:    a.ObjectID,
	}
	if a.Data.Package != nil {
		act.Title = a.Data.Package.Title
	}
	return act
}
