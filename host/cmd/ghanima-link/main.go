package main

import "ghanima/host/cli"

func main() {
	cli.Execute()
}
