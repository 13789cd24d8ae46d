package main

import "github.com/ValentinKolb/dODM/cmd"

func main() {
	cmd.Execute()
}
