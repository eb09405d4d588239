package main

import "github.com/edudao/gatekeeper/cmd/gatekeeperctl/cmd"

func main() {
	cmd.Execute()
}
