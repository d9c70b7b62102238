/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "captionbot/cmd"

func main() {
	cmd.Execute()
}
