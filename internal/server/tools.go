package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cartwheel-tools/kroger-mcp/internal/agent"
	"github.com/cartwheel-tools/kroger-mcp/internal/kroger"
	"github.com/cartwheel-tools/kroger-mcp/internal/logger"
	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"
)

const (
	defaultSearchRadius = 10
	defaultSearchLimit  = 5
	defaultProductLimit = 10
)

const loginHint = "Not logged in. Run `kroger-mcp login` to authorize this tool."

func (s *Server) setupTools() {
	s.mcp.AddTool(mcp.NewTool("search_store_locations",
		mcp.WithDescription("Find Kroger stores near a zip code. Returns store names, addresses, and phone numbers."),
		mcp.WithString("zip_code",
			mcp.Description("Zip code to search near. Defaults to the configured zip code."),
		),
		mcp.WithNumber("radius_in_miles",
			mcp.Description("Search radius in miles (1-100, default 10)."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of stores to return (1-200, default 5)."),
		),
		mcp.WithString("chain",
			mcp.Description("Restrict results to one chain, e.g. KROGER."),
		),
	), s.handleSearchStores)

	s.mcp.AddTool(mcp.NewTool("get_store_details",
		mcp.WithDescription("Get details for one Kroger store by its location id."),
		mcp.WithString("location_id",
			mcp.Required(),
			mcp.Description("The locationId of the store."),
		),
	), s.handleStoreDetails)

	s.mcp.AddTool(mcp.NewTool("list_chains",
		mcp.WithDescription("List all Kroger banner chains."),
	), s.handleListChains)

	s.mcp.AddTool(mcp.NewTool("search_products",
		mcp.WithDescription("Search the Kroger catalog for products, optionally scoped to a store for pricing."),
		mcp.WithString("term",
			mcp.Required(),
			mcp.Description("Search term, e.g. milk."),
		),
		mcp.WithString("location_id",
			mcp.Description("Store locationId for price and availability."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of products to return (default 10)."),
		),
	), s.handleSearchProducts)

	s.mcp.AddTool(mcp.NewTool("get_product_details",
		mcp.WithDescription("Get details for one product by its product id."),
		mcp.WithString("product_id",
			mcp.Required(),
			mcp.Description("The productId of the product."),
		),
		mcp.WithString("location_id",
			mcp.Description("Store locationId for price and availability."),
		),
	), s.handleProductDetails)

	s.mcp.AddTool(mcp.NewTool("add_to_cart",
		mcp.WithDescription("Add an item to the logged-in customer's cart. Requires a prior `kroger-mcp login`."),
		mcp.WithString("upc",
			mcp.Required(),
			mcp.Description("The UPC of the item."),
		),
		mcp.WithNumber("quantity",
			mcp.Description("Quantity to add (default 1)."),
		),
		mcp.WithString("modality",
			mcp.Description("Fulfillment modality: DELIVERY or PICKUP."),
		),
	), s.handleAddToCart)

	s.mcp.AddTool(mcp.NewTool("get_profile",
		mcp.WithDescription("Get the logged-in customer's profile id. Requires a prior `kroger-mcp login`."),
	), s.handleGetProfile)
}

// skills mirrors the tool surface on the A2A agent card.
func (s *Server) skills() []agent.Skill {
	return []agent.Skill{
		{
			ID:          "store-locator",
			Name:        "Store locator",
			Description: "Find Kroger stores near a zip code and look up store details",
			Tags:        []string{"kroger", "stores", "locations"},
			Examples:    []string{"Find Kroger stores near 45202"},
		},
		{
			ID:          "product-search",
			Name:        "Product search",
			Description: "Search the Kroger catalog for products and prices",
			Tags:        []string{"kroger", "products"},
			Examples:    []string{"Is there milk in stock at my local Kroger?"},
		},
		{
			ID:          "cart",
			Name:        "Cart",
			Description: "Add items to the authenticated customer's cart",
			Tags:        []string{"kroger", "cart"},
		},
	}
}

// storeSummary is the flattened store record returned by the location
// tools.
type storeSummary struct {
	LocationID string `json:"location_id"`
	Name       string `json:"name"`
	Chain      string `json:"chain"`
	Address    string `json:"address"`
	Phone      string `json:"phone,omitempty"`
}

func summarize(loc *kroger.Location) storeSummary {
	a := loc.Address
	addr := fmt.Sprintf("%s, %s, %s %s", a.AddressLine1, a.City, a.State, a.ZipCode)
	return storeSummary{
		LocationID: loc.LocationID,
		Name:       loc.Name,
		Chain:      loc.Chain,
		Address:    addr,
		Phone:      loc.Phone,
	}
}

func (s *Server) handleSearchStores(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ensureAPIAuth(ctx); err != nil {
		return toolError("search_store_locations", err), nil
	}

	args := request.GetArguments()
	zipCode := argString(args, "zip_code", s.config.API.ZipCode)

	locations, err := s.api.Location.Search(ctx, &kroger.LocationSearchOptions{
		ZipCode:       zipCode,
		RadiusInMiles: argInt(args, "radius_in_miles", defaultSearchRadius),
		Limit:         argInt(args, "limit", defaultSearchLimit),
		Chain:         argString(args, "chain", ""),
	})
	if err != nil {
		return toolError("search_store_locations", err), nil
	}

	stores := make([]storeSummary, 0, len(locations.Data))
	for i := range locations.Data {
		stores = append(stores, summarize(&locations.Data[i]))
	}

	return toolJSON(map[string]any{
		"zip_code": zipCode,
		"count":    len(stores),
		"stores":   stores,
	})
}

func (s *Server) handleStoreDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ensureAPIAuth(ctx); err != nil {
		return toolError("get_store_details", err), nil
	}

	locationID := argString(request.GetArguments(), "location_id", "")
	if locationID == "" {
		return mcp.NewToolResultError("location_id is required"), nil
	}

	location, err := s.api.Location.Get(ctx, locationID)
	if err != nil {
		return toolError("get_store_details", err), nil
	}
	return toolJSON(location.Data)
}

func (s *Server) handleListChains(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ensureAPIAuth(ctx); err != nil {
		return toolError("list_chains", err), nil
	}

	chains, err := s.api.Location.ListChains(ctx)
	if err != nil {
		return toolError("list_chains", err), nil
	}
	return toolJSON(chains.Data)
}

func (s *Server) handleSearchProducts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ensureAPIAuth(ctx); err != nil {
		return toolError("search_products", err), nil
	}

	args := request.GetArguments()
	term := argString(args, "term", "")
	if term == "" {
		return mcp.NewToolResultError("term is required"), nil
	}

	products, err := s.api.Product.Search(ctx, &kroger.ProductSearchOptions{
		Term:       term,
		LocationID: argString(args, "location_id", ""),
		Limit:      argInt(args, "limit", defaultProductLimit),
	})
	if err != nil {
		return toolError("search_products", err), nil
	}
	return toolJSON(map[string]any{
		"term":     term,
		"count":    len(products.Data),
		"products": products.Data,
	})
}

func (s *Server) handleProductDetails(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ensureAPIAuth(ctx); err != nil {
		return toolError("get_product_details", err), nil
	}

	args := request.GetArguments()
	productID := argString(args, "product_id", "")
	if productID == "" {
		return mcp.NewToolResultError("product_id is required"), nil
	}

	product, err := s.api.Product.Get(ctx, productID, argString(args, "location_id", ""))
	if err != nil {
		return toolError("get_product_details", err), nil
	}
	return toolJSON(product.Data)
}

func (s *Server) handleAddToCart(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ensureUserAuth(ctx); err != nil {
		return toolError("add_to_cart", err), nil
	}

	args := request.GetArguments()
	upc := argString(args, "upc", "")
	if upc == "" {
		return mcp.NewToolResultError("upc is required"), nil
	}

	item := kroger.CartItem{
		UPC:      upc,
		Quantity: argInt(args, "quantity", 1),
		Modality: argString(args, "modality", ""),
	}
	if err := s.user.Cart.Add(ctx, []kroger.CartItem{item}); err != nil {
		return toolError("add_to_cart", err), nil
	}
	return toolJSON(map[string]any{
		"success":  true,
		"upc":      item.UPC,
		"quantity": item.Quantity,
	})
}

func (s *Server) handleGetProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.ensureUserAuth(ctx); err != nil {
		return toolError("get_profile", err), nil
	}

	profile, err := s.user.Identity.Profile(ctx)
	if err != nil {
		return toolError("get_profile", err), nil
	}
	return toolJSON(profile.Data)
}

// toolJSON wraps a value as an indented JSON tool result.
func toolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// toolError maps client failures onto tool error results, keeping the
// error inside the protocol rather than failing the call.
func toolError(tool string, err error) *mcp.CallToolResult {
	if errors.Is(err, kroger.ErrNotAuthenticated) {
		return mcp.NewToolResultError(loginHint)
	}
	logger.Error("Tool call failed", zap.String("tool", tool), zap.Error(err))
	return mcp.NewToolResultError(fmt.Sprintf("%s failed: %v", tool, err))
}

func argString(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func argInt(args map[string]any, key string, fallback int) int {
	switch v := args[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case int:
		if v > 0 {
			return v
		}
	}
	return fallback
}
