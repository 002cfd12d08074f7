package main

import "github.com/rosilesmarcos01/bbms-sub000/cmd"

func main() {
	cmd.Execute()
}
