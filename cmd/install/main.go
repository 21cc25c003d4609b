package main

import (
	"macrocast-backend/cmd/install/cmd"
)

func main() {
	cmd.Execute()
}
