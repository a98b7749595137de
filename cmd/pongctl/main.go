package main

import "github.com/mcoot/pongarena/internal/cli"

func main() {
	cli.Execute()
}
