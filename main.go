/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package main

import "github.com/Phuduong999/annotation-platform-sub000/cmd"

func main() {
	cmd.Execute()
}
