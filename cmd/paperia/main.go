package main

import "github.com/joseph-ayodele/paperia/cmd/paperia/cmd"

func main() {
	cmd.Execute()
}
