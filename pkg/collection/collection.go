// Package collection holds the generic slice helpers shared by the
// in-memory store and the PDF report builders.
package collection

import (
	"cmp"
	"slices"
)

func Map[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, 0, len(s))
	for _, v := range s {
		out = append(out, fn(v))
	}
	return out
}

// Filter keeps the elements for which keep returns true. The result never
// aliases s, so callers may sort it freely.
func Filter[T any](s []T, keep func(T) bool) []T {
	out := make([]T, 0, len(s))
	for _, v := range s {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// GroupBy buckets s by key, preserving input order inside each bucket.
func GroupBy[T any, K comparable](s []T, key func(T) K) map[K][]T {
	out := make(map[K][]T)
	for _, v := range s {
		k := key(v)
		out[k] = append(out[k], v)
	}
	return out
}

// KeyBy indexes s by key; later elements overwrite earlier ones.
func KeyBy[T any, K comparable](s []T, key func(T) K) map[K]T {
	out := make(map[K]T, len(s))
	for _, v := range s {
		out[key(v)] = v
	}
	return out
}

// Sum adds up fn over s.
func Sum[T any, N cmp.Ordered](s []T, fn func(T) N) N {
	var acc N
	for _, v := range s {
		acc += fn(v)
	}
	return acc
}

// SortBy stable-sorts s in place and returns it.
func SortBy[T any](s []T, less func(a, b T) bool) []T {
	slices.SortStableFunc(s, func(a, b T) int {
		switch {
		case less(a, b):
			return -1
		case less(b, a):
			return 1
		}
		return 0
	})
	return s
}

// Paginate slices out a 1-indexed page. size <= 0 disables paging.
func Paginate[T any](s []T, page, size int) []T {
	if size <= 0 {
		return s
	}
	start := (max(page, 1) - 1) * size
	if start >= len(s) {
		return nil
	}
	return s[start:min(start+size, len(s))]
}
