package shopify

import "strings"

// nextPageURL extracts the rel="next" target from an RFC 5988 Link header.
// Shopify sends headers like:
//
//	<https://shop.myshopify.com/admin/api/2024-01/orders.json?page_info=abc&limit=250>; rel="next"
//
// possibly alongside a rel="previous" entry in the same header. Each
// comma-separated entry is matched against its own rel parameter, never
// against the header as a whole. Returns "" when there is no next page.
func nextPageURL(header string) string {
	for _, entry := range strings.Split(header, ",") {
		parts := strings.Split(entry, ";")
		if len(parts) < 2 {
			continue
		}
		target := strings.TrimSpace(parts[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range parts[1:] {
			key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
			if !ok {
				continue
			}
			if strings.TrimSpace(key) == "rel" && strings.Trim(strings.TrimSpace(value), `"`) == "next" {
				return strings.Trim(target, "<>")
			}
		}
	}
	return ""
}
