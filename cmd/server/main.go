package main

import "github.com/jengzang/records-timeline/internal/cli"

func main() {
	cli.Execute()
}
