package main

import "github.com/vietddude/launcher/internal/cli"

func main() {
	cli.Execute()
}
