package main

import "faceclock/cmd"

func main() {
	cmd.Execute()
}
