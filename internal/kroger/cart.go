package kroger

import (
	"context"
	"fmt"
	"net/http"
)

// CartService covers the Cart API. All operations require a user token
// with the cart.basic:write scope.
type CartService struct {
	client *Client
}

// Add puts items in the authenticated customer's cart. The endpoint
// returns 204 on success.
func (s *CartService) Add(ctx context.Context, items []CartItem) error {
	if len(items) == 0 {
		return fmt.Errorf("no items to add")
	}
	body := map[string]any{"items": items}
	return s.client.do(ctx, http.MethodPut, "/v1/cart/add", nil, body, nil)
}
