package main

import "pennywise/cmd"

func main() {
	cmd.Execute()
}
