package main

import "github.com/quantumpanel/keybot/cmd"

func main() {
	cmd.Execute()
}
