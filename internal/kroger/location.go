package kroger

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// LocationService covers the Location API: stores, chains, and
// departments.
type LocationService struct {
	client *Client
}

// LocationSearchOptions are the filters accepted by the locations search
// endpoint. Zero values are omitted from the query.
type LocationSearchOptions struct {
	// ZipCode is the starting point for proximity results.
	ZipCode string
	// LatLong is a comma separated "lat,long" starting point.
	LatLong string
	Lat     string
	Lon     string
	// RadiusInMiles restricts results to a 1-100 mile radius.
	RadiusInMiles int
	// Limit caps the number of results (1-200).
	Limit      int
	Chain      string
	Department string
	LocationID string
}

func (o *LocationSearchOptions) query() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	if o.ZipCode != "" {
		q.Set("filter.zipCode.near", o.ZipCode)
	}
	if o.LatLong != "" {
		q.Set("filter.latLong.near", o.LatLong)
	}
	if o.Lat != "" {
		q.Set("filter.lat.near", o.Lat)
	}
	if o.Lon != "" {
		q.Set("filter.lon.near", o.Lon)
	}
	if o.RadiusInMiles > 0 {
		q.Set("filter.radiusInMiles", strconv.Itoa(o.RadiusInMiles))
	}
	if o.Limit > 0 {
		q.Set("filter.limit", strconv.Itoa(o.Limit))
	}
	if o.Chain != "" {
		q.Set("filter.chain", o.Chain)
	}
	if o.Department != "" {
		q.Set("filter.department", o.Department)
	}
	if o.LocationID != "" {
		q.Set("filter.locationId", o.LocationID)
	}
	return q
}

// Search returns stores matching the given filters.
func (s *LocationService) Search(ctx context.Context, opts *LocationSearchOptions) (*LocationsResponse, error) {
	var resp LocationsResponse
	if err := s.client.do(ctx, http.MethodGet, "/v1/locations", opts.query(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get returns details for one store.
func (s *LocationService) Get(ctx context.Context, locationID string) (*LocationResponse, error) {
	var resp LocationResponse
	path := fmt.Sprintf("/v1/locations/%s", url.PathEscape(locationID))
	if err := s.client.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Exists reports whether a store exists, using the HEAD endpoint.
func (s *LocationService) Exists(ctx context.Context, locationID string) (bool, error) {
	path := fmt.Sprintf("/v1/locations/%s", url.PathEscape(locationID))
	return s.exists(ctx, path)
}

// ListChains returns all chains.
func (s *LocationService) ListChains(ctx context.Context) (*ChainsResponse, error) {
	var resp ChainsResponse
	if err := s.client.do(ctx, http.MethodGet, "/v1/chains", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetChain returns details for one chain.
func (s *LocationService) GetChain(ctx context.Context, name string) (*ChainResponse, error) {
	var resp ChainResponse
	path := fmt.Sprintf("/v1/chains/%s", url.PathEscape(name))
	if err := s.client.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ChainExists reports whether a chain exists.
func (s *LocationService) ChainExists(ctx context.Context, name string) (bool, error) {
	return s.exists(ctx, fmt.Sprintf("/v1/chains/%s", url.PathEscape(name)))
}

// ListDepartments returns all departments.
func (s *LocationService) ListDepartments(ctx context.Context) (*DepartmentsResponse, error) {
	var resp DepartmentsResponse
	if err := s.client.do(ctx, http.MethodGet, "/v1/departments", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetDepartment returns details for one department.
func (s *LocationService) GetDepartment(ctx context.Context, departmentID string) (*DepartmentResponse, error) {
	var resp DepartmentResponse
	path := fmt.Sprintf("/v1/departments/%s", url.PathEscape(departmentID))
	if err := s.client.do(ctx, http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DepartmentExists reports whether a department exists.
func (s *LocationService) DepartmentExists(ctx context.Context, departmentID string) (bool, error) {
	return s.exists(ctx, fmt.Sprintf("/v1/departments/%s", url.PathEscape(departmentID)))
}

func (s *LocationService) exists(ctx context.Context, path string) (bool, error) {
	err := s.client.do(ctx, http.MethodHead, path, nil, nil, nil)
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, err
}
