package kroger

import (
	"context"
	"net/http"
)

// IdentityService covers the Identity API. Requires a user token with the
// profile.compact scope.
type IdentityService struct {
	client *Client
}

// Profile returns the authenticated customer's profile id.
func (s *IdentityService) Profile(ctx context.Context) (*Profile, error) {
	var resp Profile
	if err := s.client.do(ctx, http.MethodGet, "/v1/identity/profile", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
