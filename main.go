// Package main is the entry point for ids-rs.
package main

import "idsrs/cmd"

func main() {
	cmd.Execute()
}
