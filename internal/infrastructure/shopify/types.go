package shopify

// graphQLRequest is the POST body of an Admin GraphQL API call.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// graphQLResponse is the envelope of an Admin GraphQL API reply. Data is
// decoded untyped because the records inside have no fixed schema.
type graphQLResponse struct {
	Data   map[string]any `json:"data"`
	Errors []graphQLError `json:"errors,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

// customersQuery pages through customers with their metafields. Fields are
// aliased to the REST snake_case names so both fetch variants flatten into
// the same columns.
const customersQuery = `
query customers($pageSize: Int!, $metafieldPageSize: Int!, $cursor: String) {
  customers(first: $pageSize, after: $cursor) {
    edges {
      node {
        id
        email
        first_name: firstName
        last_name: lastName
        phone
        created_at: createdAt
        updated_at: updatedAt
        verified_email: verifiedEmail
        default_address: defaultAddress {
          address1
          address2
          city
          province
          country
          zip
        }
        metafields(first: $metafieldPageSize) {
          edges {
            node {
              key
              value
            }
          }
        }
      }
    }
    pageInfo {
      hasNextPage
      endCursor
    }
  }
}`
