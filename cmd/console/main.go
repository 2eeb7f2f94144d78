// Command console runs the admin console backend-for-frontend and its CLI.
package main

import (
	"os"

	"github.com/adminkit/admin-console/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
