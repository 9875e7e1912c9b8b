package main

import "github.com/openswoop/coursegraph/cmd"

func main() {
	cmd.Execute()
}
