package source

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// upstream holds the fetch helpers shared by both clients.
type upstream struct {
	options
}

func (u upstream) search(ctx context.Context, params url.Values) (ckanSearch, error) {
	body, err := u.fetcher.Get(ctx, u.endpoints.packageSearch(), params)
	if err != nil {
		return ckanSearch{}, err
	}
	return decodeSearch(body)
}

func (u upstream) recentActivity(ctx context.Context, limit int) (ckanActivityList, error) {
	body, err := u.fetcher.Get(ctx, u.endpoints.recentlyChanged(), url.Values{
		"limit": {strconv.Itoa(limit)},
	})
	if err != nil {
		return ckanActivityList{}, err
	}
	return decodeActivity(body)
}

func (u upstream) observations(ctx context.Context, series string) (valetResponse, error) {
	body, err := u.fetcher.Get(ctx, u.endpoints.valetObservations(series), url.Values{
		"start_date": {valetStartDate},
		"end_date":   {u.today()},
	})
	if err != nil {
		return valetResponse{}, err
	}
	return decodeValet(body)
}

// censusRecords fetches an EITS time series and returns the number of rows
// it held. A body that is not a JSON table counts as zero rows.
func (u upstream) censusRecords(ctx context.Context, dataset, fields string) (int, error) {
	body, err := u.fetcher.Get(ctx, u.endpoints.census(dataset), url.Values{
		"get":  {fields},
		"time": {"2024"},
	})
	if err != nil {
		return 0, err
	}
	var rows [][]any
	if err := json.Unmarshal(body, &rows); err != nil {
		u.logger.Debug("census response is not a table", "dataset", dataset, "error", err)
		return 0, nil
	}
	return len(rows), nil
}

func searchParams(q, organization string, rows int, newestFirst bool) url.Values {
	v := url.Values{
		"q":    {q},
		"rows": {strconv.Itoa(rows)},
	}
	if organization != "" {
		v.Set("organization", organization)
	}
	if newestFirst {
		v.Set("sort", "metadata_modified desc")
	}
	return v
}

// notAvailable logs the diagnostic for a lookup that has no free provider.
func (u upstream) notAvailable(what string, args ...any) {
	u.logger.Warn(what+" not available - no free public API exists", args...)
}
