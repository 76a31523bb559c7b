//go:build !statsview

package statsview

import "io"

// Launch does nothing in builds without the statsview tag.
func Launch(output io.Writer) {
}

// Available reports whether a statsview build is present.
func Available() bool {
	return false
}
