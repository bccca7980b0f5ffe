package main

import "github.com/breathsave/breathsave/cmd"

func main() {
	cmd.Execute()
}
