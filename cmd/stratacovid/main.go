// cmd/stratacovid/main.go
package main

import (
	"context"
	"log"

	"github.com/dalemusser/stratacovid/internal/app/bootstrap"
	"github.com/dalemusser/waffle/app"
)

func main() {
	// WAFFLE installs its own signal handling and logger; errors before the
	// logger exists are reported here.
	if err := app.Run(context.Background(), bootstrap.Hooks); err != nil {
		log.Fatal(err)
	}
}
