package main

import "acumensync/cmd"

func main() {
	cmd.Execute()
}
