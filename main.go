package main

import "github.com/doctopus/leavewatch/cmd"

func main() {
	cmd.Execute()
}
