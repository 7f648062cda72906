package main

import "ridx/internal/cli"

func main() {
	cli.Execute()
}
