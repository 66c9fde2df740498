package main

import "github.com/MeKo-Tech/aprilgo/cmd/aprilgo/cmd"

func main() {
	cmd.Execute()
}
