// botpanel drives an agile bot CLI from a browser or terminal panel.
package main

import (
	"os"

	"github.com/steveyegge/botpanel/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
