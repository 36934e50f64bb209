package models

// ObjectCollection is an ordered, possibly paginated, collection of T.
// A collection may be known only by its IRI, in which case Items is empty.
type ObjectCollection[T any] struct {
	// ID is the IRI of the collection, empty if none was published.
	ID string
	// TotalItems is the size reported by the remote server. It may exceed
	// len(Items) when the collection was not enumerated.
	TotalItems int
	Items      []T
}

// Len returns the number of items enumerated.
func (c ObjectCollection[T]) Len() int {
	return len(c.Items)
}

// IsZero reports whether the collection is entirely unset.
func (c ObjectCollection[T]) IsZero() bool {
	return c.ID == "" && c.TotalItems == 0 && len(c.Items) == 0
}
