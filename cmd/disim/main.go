// Command disim runs delay-insensitive circuits.
package main

import "github.com/sarchlab/disim/cmd/disim/cmd"

func main() {
	cmd.Execute()
}
