package pipeline

import (
	"sort"
	"strconv"
	"strings"
)

// Separator joins nested path segments in flattened record keys.
const Separator = "_"

// StoreTagField is the column carrying the originating store on every
// flattened record.
const StoreTagField = "shop_name"

// DefaultMetafieldLimit caps how many metafield entries are pivoted per
// customer. Entries at higher indices are dropped; PivotMetafields reports
// how many. The cap is a fidelity boundary inherited from the upstream
// export, not a property of the domain.
const DefaultMetafieldLimit = 100

// metafieldPath is the flattened ancestor path of the pivoted key/value list.
const metafieldPath = "metafields"

// Record is a single-level mapping from a joined path key to a scalar value.
type Record map[string]any

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Flatten collapses a nested record into a Record keyed by path segments
// joined with Separator, with sequence indices rendered as decimal segments,
// and tags the result with the store name. Mapping keys are visited in sorted
// order so the traversal is deterministic.
func Flatten(rec Mapping, shopName string) Record {
	out := make(Record, len(rec)+1)
	flattenInto(out, rec, "")
	out[StoreTagField] = shopName
	return out
}

func flattenInto(out Record, n Node, prefix string) {
	switch v := n.(type) {
	case Mapping:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenInto(out, v[k], prefix+k+Separator)
		}
	case Sequence:
		for i, elem := range v {
			flattenInto(out, elem, prefix+strconv.Itoa(i)+Separator)
		}
	case Scalar:
		out[strings.TrimSuffix(prefix, Separator)] = v.Value
	}
}

// FlattenCustomer flattens a customer record and pivots its metafields. It
// returns the flattened record and the number of metafield entries dropped by
// the pivot limit.
func FlattenCustomer(rec Mapping, shopName string, metafieldLimit int) (Record, int) {
	flat := Flatten(rec, shopName)
	dropped := PivotMetafields(flat, metafieldLimit)
	return flat, dropped
}

// PivotMetafields rewrites the positionally flattened metafield entries of a
// customer record into one column per metafield key. For every index below
// limit, a non-null key name becomes a top-level column holding the paired
// value; the synthetic per-index columns are removed whether or not the pivot
// fired. Entries at or past the limit are removed without pivoting; their
// count is returned so callers can surface the loss.
func PivotMetafields(rec Record, limit int) int {
	if limit <= 0 {
		limit = DefaultMetafieldLimit
	}
	dropped := 0
	for i := 0; ; i++ {
		keyField := metafieldPath + Separator + strconv.Itoa(i) + Separator + "key"
		valueField := metafieldPath + Separator + strconv.Itoa(i) + Separator + "value"
		name, hasKey := rec[keyField]
		_, hasValue := rec[valueField]
		if !hasKey && !hasValue {
			return dropped
		}
		if i >= limit {
			dropped++
		} else if col, ok := name.(string); ok && col != "" {
			rec[col] = rec[valueField]
		}
		delete(rec, keyField)
		delete(rec, valueField)
	}
}
