package main

import "github.com/VeduStorm/NovaCore/nova/cmd"

func main() {
	cmd.Run()
}
