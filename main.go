package main

import "github.com/dinersim/dinersim/cmd"

func main() {
	cmd.Execute()
}
