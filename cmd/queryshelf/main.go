// Command queryshelf manages and serves a catalog of saved SQL queries.
package main

import "github.com/mesh-intelligence/queryshelf/internal/cli"

func main() {
	cli.Execute()
}
