// Command janusctl manages a running janus-server over gRPC: user overrides,
// network inspection and override backups.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(dialClient).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
