package main

import "github.com/Norgate-AV/kbuild/cmd"

func main() {
	cmd.Execute()
}
