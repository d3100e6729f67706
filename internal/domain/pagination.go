package domain

import "math"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page is a 1-based offset/limit page request.
type Page struct {
	Number int
	Size   int
}

// NewPage clamps the page number to [1, math.MaxInt/size] and the size to
// (0, MaxPageSize], so Offset never overflows.
func NewPage(number, size, defaultSize int) Page {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if number < 1 {
		number = 1
	}
	if size <= 0 {
		size = defaultSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if maxNumber := math.MaxInt / size; number > maxNumber {
		number = maxNumber
	}
	return Page{Number: number, Size: size}
}

// Offset returns the number of records to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// TotalPages returns ceil(total / size).
func (p Page) TotalPages(total int) int {
	if total <= 0 || p.Size <= 0 {
		return 0
	}
	return (total + p.Size - 1) / p.Size
}
