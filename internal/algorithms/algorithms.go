// package algorithms provides generic map and filter functions over slices.
package algorithms

// Map applies the function f to each element of the slice and returns a new slice containing the results.
func Map[T, R any](s []T, f func(T) R) []R {
	r := make([]R, 0, len(s))
	for _, v := range s {
		r = append(r, f(v))
	}
	return r
}

// TryMap is Map for functions that can fail. It stops at the first error.
func TryMap[T, R any](s []T, f func(T) (R, error)) ([]R, error) {
	r := make([]R, 0, len(s))
	for _, v := range s {
		res, err := f(v)
		if err != nil {
			return nil, err
		}
		r = append(r, res)
	}
	return r, nil
}

// Filter returns a new slice containing all elements of the slice that satisfy the predicate function.
func Filter[T any](s []T, f func(T) bool) []T {
	r := make([]T, 0, len(s))
	for _, v := range s {
		if f(v) {
			r = append(r, v)
		}
	}
	return r
}

// Any reports whether any element of the slice satisfies the predicate.
func Any[T any](s []T, f func(T) bool) bool {
	for _, v := range s {
		if f(v) {
			return true
		}
	}
	return false
}
