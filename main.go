package main

import "github.com/triage-tools/github-triage/cmd"

func main() {
	cmd.Execute()
}
