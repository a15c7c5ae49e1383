package main

import "github.com/khanhnv2901/sitesniffer/cmd"

var execCmd = cmd.Execute

func main() {
	execCmd()
}
