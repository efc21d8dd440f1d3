package main

import "github.com/tagwarden/tagwarden/internal/cli"

func main() {
	cli.Execute()
}
