package main

import "github.com/Laisky/syncd/cmd"

func main() {
	cmd.Execute()
}
