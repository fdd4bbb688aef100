package main

import "github.com/rasnes/covid-etl/cmd"

func main() {
	cmd.Execute()
}
