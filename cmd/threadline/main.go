package main

import "github.com/berth-dev/threadline/internal/cli"

func main() {
	cli.Execute()
}
