package main

import "github.com/nightwatch-astro/nightwatch/cmd"

func main() {
	cmd.Execute()
}
