package main

import (
	"os"

	"horse.fit/citycal/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
