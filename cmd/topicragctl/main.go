// Command topicragctl inspects corpus datasets and runs retrieval queries
// without starting the HTTP server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
