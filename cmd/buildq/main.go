// Command buildq manages the job and group queues of an agent build loop.
package main

import (
	"os"

	"github.com/msageha/buildq/internal/cli"
)

func main() {
	os.Exit(cli.Execute(cli.NewRootCmd()))
}
