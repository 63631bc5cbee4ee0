package main

import "hermes-backend/cmd"

func main() {
	cmd.Execute()
}
