package main

import "github.com/mcrovella/fluxtwin/internal/cli"

func main() {
	cli.Execute()
}
