// Command authzctl verifies bearer tokens and computes response ETags from
// the command line.
package main

import "github.com/lambdakit/go-authz/cmd/authzctl/cmd"

func main() {
	cmd.Execute()
}
