package main

import "github.com/ZanzyTHEbar/rosie-cli/cmd"

func main() {
	cmd.Execute()
}
