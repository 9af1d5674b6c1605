package main

import (
	"os"

	"factflow.app/backend/internal/app"
)

func main() {
	os.Exit(app.Run(os.Args[1:]))
}
