package main

import "github.com/vietddude/intake/internal/cli"

func main() {
	cli.Execute()
}
