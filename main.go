package main

import "github.com/ZaguanLabs/ZaguanBlade-sub000/cmd"

func main() {
	cmd.Execute()
}
