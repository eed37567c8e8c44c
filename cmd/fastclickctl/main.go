// fastclickctl is the operator CLI. It reads the same environment as the
// server.
package main

import (
	"context"
	"fmt"
	"os"

	"fastclick/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(nil).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
