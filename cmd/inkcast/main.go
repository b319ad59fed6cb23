package main

import "inkcast/internal/cli"

func main() {
	cli.Main()
}
