package main

import "github.com/dhaaraai/go-auth/cmd/authd/cmd"

func main() {
	cmd.Execute()
}
