package main

import (
	"log"

	"github.com/ofcrse/site/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		log.Fatalf("❌ ofcrse failed to start: %v", err)
	}
	if err := a.Run(); err != nil {
		log.Fatalf("❌ ofcrse stopped with error: %v", err)
	}
}
