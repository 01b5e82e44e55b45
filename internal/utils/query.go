package utils

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ToSkipAndLimit converts a 1-based page and a page size into a skip/limit
// pair. Zero values fall back to the first page of DefaultPageSize and sizes
// above MaxPageSize are capped.
func ToSkipAndLimit(page uint64, size uint64) (skip uint64, limit uint64) {
	if page == 0 {
		page = 1
	}

	switch {
	case size == 0:
		size = DefaultPageSize
	case size > MaxPageSize:
		size = MaxPageSize
	}

	skip = (page - 1) * size
	limit = size

	return
}
