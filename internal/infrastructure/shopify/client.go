package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/storesync/backend/internal/domain/pipeline"
)

// maxResponseSize is the maximum allowed response size from the Admin API (20MB)
const maxResponseSize = 20 * 1024 * 1024

// Client implements the pipeline.Source port against the Shopify Admin API.
// Customers come from REST or, per store, from the GraphQL API (which carries
// metafields); orders always come from REST with every status included.
type Client struct {
	config     *Config
	httpClient *http.Client

	// limiter spaces consecutive page requests. Shopify rate limits per
	// shop, but the run is sequential so one limiter covers all stores.
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a Shopify Admin API client with the given configuration.
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	requested := config.MetafieldPageSize
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if requested > config.MetafieldPageSize {
		logger.Warn("Metafield page size capped at connection maximum",
			zap.Int("requested", requested),
			zap.Int("effective", config.MetafieldPageSize),
		)
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(config.ThrottleRPS), 1),
		logger:  logger,
	}, nil
}

// FetchCustomers retrieves all customers of a store, following pagination to
// the end.
func (c *Client) FetchCustomers(ctx context.Context, store pipeline.Store) ([]pipeline.Mapping, error) {
	if store.UseGraphQL {
		return c.fetchCustomersGraphQL(ctx, store)
	}
	return c.fetchPagedREST(ctx, store, "customers", nil)
}

// FetchOrders retrieves all orders of a store regardless of status,
// following pagination to the end.
func (c *Client) FetchOrders(ctx context.Context, store pipeline.Store) ([]pipeline.Mapping, error) {
	return c.fetchPagedREST(ctx, store, "orders", url.Values{"status": []string{"any"}})
}

// ---------------------------------------------------------------------------
// REST Pagination
// ---------------------------------------------------------------------------

// fetchPagedREST walks a REST collection page by page, following the Link
// header's rel="next" target until it is absent.
func (c *Client) fetchPagedREST(ctx context.Context, store pipeline.Store, resource string, params url.Values) ([]pipeline.Mapping, error) {
	pageURL, err := c.firstPageURL(store, resource, params)
	if err != nil {
		return nil, err
	}

	var records []pipeline.Mapping
	page := 0
	for pageURL != "" {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page++

		body, header, err := c.get(ctx, store, pageURL)
		if err != nil {
			return nil, err
		}

		batch, err := decodeCollection(body, resource)
		if err != nil {
			return nil, err
		}
		records = append(records, batch...)
		c.logger.Debug("Fetched page",
			zap.String("shop", store.ShopName),
			zap.String("resource", resource),
			zap.Int("page", page),
			zap.Int("records", len(batch)),
		)

		pageURL = nextPageURL(header.Get("Link"))
	}

	c.logger.Info("Fetched collection",
		zap.String("shop", store.ShopName),
		zap.String("resource", resource),
		zap.Int("total", len(records)),
		zap.Int("pages", page),
	)
	return records, nil
}

// firstPageURL builds the initial collection URL; later pages come verbatim
// from the Link header.
func (c *Client) firstPageURL(store pipeline.Store, resource string, params url.Values) (string, error) {
	u, err := url.Parse(c.shopBaseURL(store) + c.apiPath(store, resource+".json"))
	if err != nil {
		return "", fmt.Errorf("shopify: building %s URL: %w", resource, err)
	}
	q := u.Query()
	q.Set("limit", strconv.Itoa(c.config.PageSize))
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) shopBaseURL(store pipeline.Store) string {
	if c.config.BaseURL != "" {
		return c.config.BaseURL
	}
	return fmt.Sprintf("https://%s.myshopify.com", store.ShopName)
}

func (c *Client) apiPath(store pipeline.Store, tail string) string {
	version := store.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	return "/admin/api/" + version + "/" + tail
}

// get performs an authenticated GET and returns the body and headers.
func (c *Client) get(ctx context.Context, store pipeline.Store, rawURL string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", store.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", pipeline.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, nil, fmt.Errorf("shopify: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("%w: HTTP %d from %s", pipeline.ErrSourceRequestFailed, resp.StatusCode, rawURL)
	}
	return body, resp.Header, nil
}

// decodeCollection unwraps {"<root>": [...]} into record mappings, keeping
// numbers as json.Number so ids survive unmangled.
func decodeCollection(body []byte, root string) ([]pipeline.Mapping, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var envelope map[string]any
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrSourceInvalidResponse, err)
	}
	items, ok := envelope[root].([]any)
	if !ok {
		return nil, fmt.Errorf("%w: missing %q collection", pipeline.ErrSourceInvalidResponse, root)
	}
	records := make([]pipeline.Mapping, 0, len(items))
	for _, item := range items {
		m := pipeline.MappingFromJSON(item)
		if m == nil {
			return nil, fmt.Errorf("%w: non-object %s record", pipeline.ErrSourceInvalidResponse, root)
		}
		records = append(records, m)
	}
	return records, nil
}

// ---------------------------------------------------------------------------
// GraphQL Cursor Pagination
// ---------------------------------------------------------------------------

// fetchCustomersGraphQL pages through customers with the GraphQL API,
// following pageInfo.endCursor while hasNextPage holds.
func (c *Client) fetchCustomersGraphQL(ctx context.Context, store pipeline.Store) ([]pipeline.Mapping, error) {
	var records []pipeline.Mapping
	var cursor *string
	page := 0

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page++

		variables := map[string]any{
			"pageSize":          c.config.PageSize,
			"metafieldPageSize": c.config.MetafieldPageSize,
		}
		if cursor != nil {
			variables["cursor"] = *cursor
		}
		data, err := c.graphQL(ctx, store, customersQuery, variables)
		if err != nil {
			return nil, err
		}

		connection, ok := data["customers"].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: missing customers connection", pipeline.ErrSourceInvalidResponse)
		}
		edges, _ := connection["edges"].([]any)
		for _, edge := range edges {
			em, _ := edge.(map[string]any)
			node, ok := em["node"].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%w: customer edge without node", pipeline.ErrSourceInvalidResponse)
			}
			m := pipeline.MappingFromJSON(collapseConnections(node))
			records = append(records, m)
		}
		c.logger.Debug("Fetched GraphQL page",
			zap.String("shop", store.ShopName),
			zap.Int("page", page),
			zap.Int("records", len(edges)),
		)

		pageInfo, _ := connection["pageInfo"].(map[string]any)
		hasNext, _ := pageInfo["hasNextPage"].(bool)
		if !hasNext {
			break
		}
		endCursor, ok := pageInfo["endCursor"].(string)
		if !ok || endCursor == "" {
			return nil, fmt.Errorf("%w: hasNextPage without endCursor", pipeline.ErrSourceInvalidResponse)
		}
		cursor = &endCursor
	}

	c.logger.Info("Fetched collection",
		zap.String("shop", store.ShopName),
		zap.String("resource", "customers"),
		zap.Int("total", len(records)),
		zap.Int("pages", page),
	)
	return records, nil
}

// graphQL performs one Admin GraphQL API call and returns the data payload.
func (c *Client) graphQL(ctx context.Context, store pipeline.Store, query string, variables map[string]any) (map[string]any, error) {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("shopify: encoding graphql request: %w", err)
	}

	endpoint := c.shopBaseURL(store) + c.apiPath(store, "graphql.json")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("shopify: failed to create request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", store.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("shopify: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d from %s", pipeline.ErrSourceRequestFailed, resp.StatusCode, endpoint)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var gqlResp graphQLResponse
	if err := dec.Decode(&gqlResp); err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrSourceInvalidResponse, err)
	}
	if len(gqlResp.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s", pipeline.ErrSourceRequestFailed, gqlResp.Errors[0].Message)
	}
	if gqlResp.Data == nil {
		return nil, fmt.Errorf("%w: empty data payload", pipeline.ErrSourceInvalidResponse)
	}
	return gqlResp.Data, nil
}

// collapseConnections rewrites GraphQL connection shapes into the plain
// lists the flattener expects: {"edges": [{"node": X}, ...]} becomes [X, ...]
// at any depth. Global IDs like gid://shopify/Customer/42 are reduced to
// their trailing numeric segment so they line up with REST ids.
func collapseConnections(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if edges, ok := val["edges"].([]any); ok && len(val) <= 2 {
			nodes := make([]any, 0, len(edges))
			for _, edge := range edges {
				if em, ok := edge.(map[string]any); ok {
					nodes = append(nodes, collapseConnections(em["node"]))
				}
			}
			return nodes
		}
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = collapseConnections(elem)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = collapseConnections(elem)
		}
		return out
	case string:
		if rest, ok := strings.CutPrefix(val, "gid://shopify/"); ok {
			if i := strings.LastIndex(rest, "/"); i >= 0 {
				return rest[i+1:]
			}
		}
		return val
	default:
		return val
	}
}

// Ensure Client implements the Source port
var _ pipeline.Source = (*Client)(nil)
