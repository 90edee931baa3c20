// Command menuscan runs menu recognition and structuring offline, without
// the API server or a database.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
