package main

import "github.com/serpkit/serp-go/internal/cli"

func main() {
	cli.Execute()
}
