package main

import "github.com/diaryscope/diaryscope/cmd"

func main() {
	cmd.Execute()
}
