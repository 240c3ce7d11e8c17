// Package grid converts between linear indices and row-major cell
// coordinates, as used by the screen memory map.
package grid

// GetGridCoords returns the column and row of cell index in a grid cols
// cells wide.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// Index is the inverse of GetGridCoords.
func Index(x, y, cols int) int {
	return y*cols + x
}
