package main

import "fintrack/internal/cli"

func main() {
	cli.Execute()
}
