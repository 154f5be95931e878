package main

import (
	"os"

	"github.com/GoUserAdmin/GoUserAdmin/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
