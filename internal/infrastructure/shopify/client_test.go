package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storesync/backend/internal/domain/pipeline"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(&Config{
		BaseURL:     serverURL,
		PageSize:    250,
		ThrottleRPS: 1000, // keep tests fast
	}, zap.NewNop())
	require.NoError(t, err)
	return client
}

func testStore() pipeline.Store {
	return pipeline.Store{
		ID:          "SHOPIFY_EU",
		ShopName:    "shop-eu",
		AccessToken: "test-token",
		APIVersion:  "2024-01",
	}
}

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr error
	}{
		{"defaults", &Config{}, nil},
		{"explicit values", NewConfig(), nil},
		{"page size too large", &Config{PageSize: 500}, ErrConfigInvalidPageSize},
		{"negative page size", &Config{PageSize: -1}, ErrConfigInvalidPageSize},
		{"metafield page size capped", &Config{MetafieldPageSize: 400}, nil},
		{"negative metafield page size", &Config{MetafieldPageSize: -1}, ErrConfigInvalidMetafieldPageSize},
		{"negative throttle", &Config{ThrottleRPS: -1}, ErrConfigInvalidThrottle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, 250, tt.config.PageSize)
				assert.True(t, tt.config.MetafieldPageSize >= 1 && tt.config.MetafieldPageSize <= 250)
				assert.True(t, tt.config.ThrottleRPS > 0)
				assert.True(t, tt.config.TimeoutSeconds > 0)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// REST Tests
// ---------------------------------------------------------------------------

func TestClient_FetchCustomers_FollowsLinkHeader(t *testing.T) {
	var requests []string
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.String())
		assert.Equal(t, "test-token", r.Header.Get("X-Shopify-Access-Token"))

		switch r.URL.Query().Get("page_info") {
		case "":
			assert.Equal(t, "250", r.URL.Query().Get("limit"))
			w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2024-01/customers.json?page_info=p2&limit=250>; rel="next"`, server.URL))
			fmt.Fprint(w, `{"customers": [{"id": 1, "email": "a@b.cz"}, {"id": 2, "email": "b@b.cz"}]}`)
		case "p2":
			// Last page: previous link only.
			w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2024-01/customers.json?page_info=p1&limit=250>; rel="previous"`, server.URL))
			fmt.Fprint(w, `{"customers": [{"id": 3, "email": "c@b.cz"}]}`)
		default:
			t.Fatalf("unexpected page_info %q", r.URL.Query().Get("page_info"))
		}
	}))
	defer server.Close()

	customers, err := testClient(t, server.URL).FetchCustomers(context.Background(), testStore())
	require.NoError(t, err)

	require.Len(t, customers, 3)
	require.Len(t, requests, 2)
	assert.Equal(t, pipeline.Scalar{Value: json.Number("3")}, customers[2]["id"])
	assert.Equal(t, pipeline.Scalar{Value: "c@b.cz"}, customers[2]["email"])
}

func TestClient_FetchOrders_RequestsAnyStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-01/orders.json", r.URL.Path)
		assert.Equal(t, "any", r.URL.Query().Get("status"))
		assert.Equal(t, "250", r.URL.Query().Get("limit"))
		fmt.Fprint(w, `{"orders": [{"id": 100, "line_items": [{"id": 1}]}]}`)
	}))
	defer server.Close()

	orders, err := testClient(t, server.URL).FetchOrders(context.Background(), testStore())
	require.NoError(t, err)
	require.Len(t, orders, 1)

	items, ok := orders[0]["line_items"].(pipeline.Sequence)
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestClient_FetchOrders_ErrorStatusAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := testClient(t, server.URL).FetchOrders(context.Background(), testStore())
	assert.ErrorIs(t, err, pipeline.ErrSourceRequestFailed)
}

func TestClient_FetchCustomers_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"nope": []}`)
	}))
	defer server.Close()

	_, err := testClient(t, server.URL).FetchCustomers(context.Background(), testStore())
	assert.ErrorIs(t, err, pipeline.ErrSourceInvalidResponse)
}

func TestClient_DefaultAPIVersionApplied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/"+DefaultAPIVersion+"/customers.json", r.URL.Path)
		fmt.Fprint(w, `{"customers": []}`)
	}))
	defer server.Close()

	store := testStore()
	store.APIVersion = ""
	_, err := testClient(t, server.URL).FetchCustomers(context.Background(), store)
	assert.NoError(t, err)
}

// ---------------------------------------------------------------------------
// GraphQL Tests
// ---------------------------------------------------------------------------

func TestClient_FetchCustomersGraphQL_CursorPagination(t *testing.T) {
	var cursors []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-01/graphql.json", r.URL.Path)
		assert.Equal(t, "test-token", r.Header.Get("X-Shopify-Access-Token"))

		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		cursors = append(cursors, req.Variables["cursor"])

		if req.Variables["cursor"] == nil {
			fmt.Fprint(w, `{"data": {"customers": {
				"edges": [{"node": {
					"id": "gid://shopify/Customer/1",
					"email": "a@b.cz",
					"metafields": {"edges": [
						{"node": {"key": "vat", "value": "X1"}},
						{"node": {"key": "tier", "value": "gold"}}
					]}
				}}],
				"pageInfo": {"hasNextPage": true, "endCursor": "cur-1"}
			}}}`)
			return
		}
		assert.Equal(t, "cur-1", req.Variables["cursor"])
		fmt.Fprint(w, `{"data": {"customers": {
			"edges": [{"node": {
				"id": "gid://shopify/Customer/2",
				"email": "b@b.cz",
				"metafields": {"edges": []}
			}}],
			"pageInfo": {"hasNextPage": false, "endCursor": null}
		}}}`)
	}))
	defer server.Close()

	store := testStore()
	store.UseGraphQL = true
	customers, err := testClient(t, server.URL).FetchCustomers(context.Background(), store)
	require.NoError(t, err)

	require.Len(t, customers, 2)
	assert.Equal(t, []any{nil, "cur-1"}, cursors)

	// Global IDs are reduced to their numeric tail.
	assert.Equal(t, pipeline.Scalar{Value: "1"}, customers[0]["id"])

	// Connections collapse into plain lists, so metafields pivot downstream.
	metafields, ok := customers[0]["metafields"].(pipeline.Sequence)
	require.True(t, ok)
	require.Len(t, metafields, 2)
	first, ok := metafields[0].(pipeline.Mapping)
	require.True(t, ok)
	assert.Equal(t, pipeline.Scalar{Value: "vat"}, first["key"])
	assert.Equal(t, pipeline.Scalar{Value: "X1"}, first["value"])

	flat, dropped := pipeline.FlattenCustomer(customers[0], "shop-eu", pipeline.DefaultMetafieldLimit)
	assert.Zero(t, dropped)
	assert.Equal(t, "X1", flat["vat"])
	assert.Equal(t, "gold", flat["tier"])
}

func TestClient_FetchCustomersGraphQL_MetafieldPageSizeFollowsConfig(t *testing.T) {
	var pageSizes []any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		pageSizes = append(pageSizes, req.Variables["metafieldPageSize"])
		fmt.Fprint(w, `{"data": {"customers": {
			"edges": [],
			"pageInfo": {"hasNextPage": false, "endCursor": null}
		}}}`)
	}))
	defer server.Close()

	client, err := NewClient(&Config{
		BaseURL:           server.URL,
		PageSize:          250,
		MetafieldPageSize: 150,
		ThrottleRPS:       1000,
	}, zap.NewNop())
	require.NoError(t, err)

	store := testStore()
	store.UseGraphQL = true
	_, err = client.FetchCustomers(context.Background(), store)
	require.NoError(t, err)

	require.Len(t, pageSizes, 1)
	assert.EqualValues(t, 150, pageSizes[0])
}

func TestClient_FetchCustomersGraphQL_ErrorsPropagate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data": null, "errors": [{"message": "Throttled"}]}`)
	}))
	defer server.Close()

	store := testStore()
	store.UseGraphQL = true
	_, err := testClient(t, server.URL).FetchCustomers(context.Background(), store)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrSourceRequestFailed)
	assert.ErrorContains(t, err, "Throttled")
}
