package main

import "libcirc/internal/cli"

func main() {
	cli.Execute()
}
