package main

import "github.com/ValentinKolb/eeKV/cmd"

func main() {
	cmd.Execute()
}
