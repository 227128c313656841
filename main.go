package main

import "telefy/cmd"

func main() {
	cmd.Execute()
}
