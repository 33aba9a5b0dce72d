package kroger

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// ProductService covers the Product API.
type ProductService struct {
	client *Client
}

// ProductSearchOptions are the filters accepted by the products search
// endpoint. Zero values are omitted from the query.
type ProductSearchOptions struct {
	Term string
	// LocationID scopes pricing and availability to one store.
	LocationID string
	// ProductID is a comma separated list of product ids.
	ProductID string
	// Brand is a pipe separated list of brand names.
	Brand string
	// Fulfillment is a comma separated list of fulfillment types.
	Fulfillment string
	// Start is the number of products to skip.
	Start int
	Limit int
}

func (o *ProductSearchOptions) query() url.Values {
	q := url.Values{}
	if o == nil {
		return q
	}
	if o.Term != "" {
		q.Set("filter.term", o.Term)
	}
	if o.LocationID != "" {
		q.Set("filter.locationId", o.LocationID)
	}
	if o.ProductID != "" {
		q.Set("filter.productId", o.ProductID)
	}
	if o.Brand != "" {
		q.Set("filter.brand", o.Brand)
	}
	if o.Fulfillment != "" {
		q.Set("filter.fulfillment", o.Fulfillment)
	}
	if o.Start > 0 {
		q.Set("filter.start", strconv.Itoa(o.Start))
	}
	if o.Limit > 0 {
		q.Set("filter.limit", strconv.Itoa(o.Limit))
	}
	return q
}

// Search returns products matching the given filters.
func (s *ProductService) Search(ctx context.Context, opts *ProductSearchOptions) (*ProductsResponse, error) {
	var resp ProductsResponse
	if err := s.client.do(ctx, http.MethodGet, "/v1/products", opts.query(), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get returns details for one product. locationID, when set, adds store
// specific pricing and availability.
func (s *ProductService) Get(ctx context.Context, productID, locationID string) (*ProductResponse, error) {
	q := url.Values{}
	if locationID != "" {
		q.Set("filter.locationId", locationID)
	}
	var resp ProductResponse
	path := fmt.Sprintf("/v1/products/%s", url.PathEscape(productID))
	if err := s.client.do(ctx, http.MethodGet, path, q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
