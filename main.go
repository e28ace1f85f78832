// Roadnet - procedural road network generator for Go.
//
// Roadnet traces streamlines through a tensor field built from grid and
// radial basis fields and turns them into a planar road graph that can be
// stored, queried and exported.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/roadnet-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
