// Command huimine mines high-utility itemsets from transaction files.
package main

import (
	"fmt"
	"os"

	"github.com/eunmann/huimine/internal/cli"
)

func main() {
	if err := cli.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
