package main

import "github.com/kartmania/track-reservation/cmd"

func main() {
	cmd.Execute()
}
