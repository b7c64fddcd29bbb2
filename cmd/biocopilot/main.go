package main

import "github.com/bioviz-local/biocopilot/internal/cli"

func main() {
	cli.Execute()
}
