package main

import "github.com/bryanchriswhite/speeddraw/cmd/speeddraw/commands"

func main() {
	commands.Execute()
}
