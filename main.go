package main

import "github.com/ferreirogomes/harberger/cli"

func main() {
	cli.Execute()
}
