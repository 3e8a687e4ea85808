/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// QueryParams defines parameters for a table query.
// Used for both regular queries and streaming queries.
type QueryParams struct {
	// Filter is an OData filter expression, e.g. "PartitionKey eq '1'".
	// Empty lists the whole table.
	Filter string
	// Select restricts the returned properties. Keys are always returned.
	Select []string
	// Top defines an optional limit per page.
	Top *int32
	// Limit caps the total number of entities returned by Query. Zero means no cap.
	Limit int
}

// PartitionFilter returns an OData filter matching a single partition.
func PartitionFilter(partitionKey string) string {
	return "PartitionKey eq '" + EscapeLiteral(partitionKey) + "'"
}

// EscapeLiteral escapes a value for use inside a single-quoted OData string literal.
func EscapeLiteral(v string) string {
	out := make([]byte, 0, len(v))
	for i := 0; i < len(v); i++ {
		if v[i] == '\'' {
			out = append(out, '\'', '\'')
			continue
		}
		out = append(out, v[i])
	}
	return string(out)
}
