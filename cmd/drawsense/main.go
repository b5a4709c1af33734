package main

import "github.com/drawsense/drawsense/internal/cli"

func main() {
	cli.Execute()
}
