package main

import "coursewatch-backend/cmd/coursewatch-cli/cmd"

func main() {
	cmd.Execute()
}
