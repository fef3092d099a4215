package main

import "github.com/devicelab-dev/driverkit/pkg/cli"

func main() {
	cli.Execute()
}
