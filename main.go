package main

import "github.com/strandcli/strand/cmd"

func main() {
	cmd.Execute()
}
