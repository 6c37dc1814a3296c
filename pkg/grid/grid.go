// Package grid maps linear indices onto rows and columns for fixed-width
// text layouts.
package grid

// GetGridCoords returns the column and row of index in a grid cols wide.
func GetGridCoords(index, cols int) (x, y int) {
	if cols <= 0 {
		return 0, 0
	}
	return index % cols, index / cols
}

// Rows is the number of rows needed to hold n cells cols wide.
func Rows(n, cols int) int {
	if cols <= 0 || n <= 0 {
		return 0
	}
	return (n + cols - 1) / cols
}
