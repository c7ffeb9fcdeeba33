// Command starstore is the CLI for the starstore object database.
package main

import "github.com/leapstack-labs/starstore/internal/cli"

func main() {
	cli.Execute()
}
