//go:build statsview

// Package statsview optionally serves live Go runtime statistics for the
// server process. It is compiled in only with the statsview build tag; the
// graphs appear at localhost:12600/debug/statsview and pprof endpoints at
// localhost:12600/debug/pprof/.
package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

const Address = "localhost:12600"
const url = "/debug/statsview"

// Launch starts the statsview server in a new goroutine.
func Launch(output io.Writer) {
	go func() {
		viewer.SetConfiguration(viewer.WithAddr(Address))
		mgr := statsview.New()
		mgr.Start()
	}()

	fmt.Fprintf(output, "stats server available at %s%s\n", Address, url)
}

// Available reports whether a statsview build is present.
func Available() bool {
	return true
}
