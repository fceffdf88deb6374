package main

import "academic-scheduler/cmd"

func main() {
	cmd.Execute()
}
