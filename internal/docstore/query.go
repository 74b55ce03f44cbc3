package docstore

type queryKind int

const (
	queryEqual queryKind = iota
	queryOrderAsc
	queryOrderDesc
	queryLimit
)

// Query is a single filter, ordering, or limiting clause of a list request.
type Query struct {
	kind      queryKind
	attribute string
	value     any
	limit     int
}

// Equal filters documents whose attribute equals value. For array attributes
// the filter matches documents whose array contains value.
func Equal(attribute string, value any) Query {
	return Query{kind: queryEqual, attribute: attribute, value: value}
}

// OrderAsc sorts results by the attribute, oldest/smallest first.
func OrderAsc(attribute string) Query {
	return Query{kind: queryOrderAsc, attribute: attribute}
}

// OrderDesc sorts results by the attribute, newest/largest first.
func OrderDesc(attribute string) Query {
	return Query{kind: queryOrderDesc, attribute: attribute}
}

// Limit bounds the number of returned documents.
func Limit(n int) Query {
	return Query{kind: queryLimit, limit: n}
}
