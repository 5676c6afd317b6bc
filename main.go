package main

import "github.com/finsight/finsight-api/cmd"

func main() {
	cmd.Execute()
}
