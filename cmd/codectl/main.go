package main

import "github.com/synesthesie/verification/cmd/codectl/cmd"

func main() {
	cmd.Execute()
}
