// Hashlist inspects, queries and builds hash list archives.
package main

import "github.com/meigma/hashlist/cmd/hashlist/internal/cli"

func main() {
	cli.Execute()
}
