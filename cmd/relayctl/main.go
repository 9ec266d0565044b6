// Command relayctl talks to a running taxi relay: it sends test requests
// and manages the block list.
package main

import (
	"os"

	"github.com/olahtaxi/taxirelay/cmd/relayctl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
