// stashctl inspects a jsonstash store directory.
package main

import (
	"context"
	"os"

	"github.com/jsonstash/jsonstash/internal/cli"
)

var osExit = os.Exit

func main() {
	osExit(cli.Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
