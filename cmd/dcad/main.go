package main

import "github.com/LeJamon/goDCA/internal/cli"

func main() {
	cli.Execute()
}
