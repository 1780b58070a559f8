package main

import "github.com/bigcalc/bigcalc/cmd"

func main() {
	cmd.Execute()
}
