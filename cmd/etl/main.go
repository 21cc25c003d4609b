package main

import (
	"macrocast-backend/cmd/etl/cmd"
)

func main() {
	cmd.Execute()
}
