package main

import "github.com/anidataset/anidataset/cmd"

func main() {
	cmd.Execute()
}
