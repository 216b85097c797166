// Command autodev is the CLI entry point; it only wires flags and delegates
// to the cmd package's cobra command tree.
package main

import "github.com/autodevhq/autodev/cmd"

func main() {
	cmd.Execute()
}
