// Command grid-pages regenerates the device pack and stages the static pages bundle.
package main

import "github.com/gridspace/grid-pages/cmd/grid-pages/cmd"

func main() {
	cmd.Execute()
}
