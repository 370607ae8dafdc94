package main

import "github.com/yue/binsizer/cmd"

func main() {
	cmd.Execute()
}
