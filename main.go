package main

import "github.com/qobs-build/bootgen/cmd"

func main() {
	cmd.Execute()
}
