package main

import "fx-market-risk/internal/cli"

func main() {
	cli.Execute()
}
