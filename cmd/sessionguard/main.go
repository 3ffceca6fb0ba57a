package main

import "github.com/vietddude/sessionguard/internal/cli"

func main() {
	cli.Execute()
}
