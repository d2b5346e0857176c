package main

import "github.com/dl-alexandre/gdsync/internal/cli"

func main() {
	cli.Execute()
}
