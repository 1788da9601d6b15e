package main

import "github.com/deploymenttheory/go-macfiles/cmd"

func main() {
	cmd.Execute()
}
