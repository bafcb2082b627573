// Command docket records legal service contracts and consultation bookings.
package main

import (
	"os"

	"github.com/mesh-intelligence/docket/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
