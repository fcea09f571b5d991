package main

import "github.com/leshihua/FVENS/cmd"

func main() {
	cmd.Execute()
}
