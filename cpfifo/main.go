// Package main is the entry point of the cpfifo command-line tool.
package main

import "github.com/sarchlab/cpfifo/cpfifo/cmd"

func main() {
	cmd.Execute()
}
