package main

import "github.com/llehouerou/ripple/cmd"

func main() {
	cmd.Execute()
}
