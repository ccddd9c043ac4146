package main

import "github.com/fieldline/routecache/internal/cli"

func main() {
	cli.Execute()
}
