// Command enqueue-back-nested is the standalone form of "buildq enqueue-back-nested".
package main

import (
	"fmt"
	"os"

	"github.com/msageha/buildq/internal/cli"
)

func main() {
	cmd, err := cli.NewOperationCmd("enqueue-back-nested")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(cli.ExitFailure)
	}
	os.Exit(cli.Execute(cmd))
}
