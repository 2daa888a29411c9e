/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package main

import "github.com/arslant84/l1a-test-sub000/cmd"

func main() {
	cmd.Execute()
}
