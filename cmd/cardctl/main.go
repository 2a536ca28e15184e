package main

import (
	"os"

	"github.com/HammerMeetNail/vytalcards/internal/logging"
)

func main() {
	app := newApp(appDeps{
		out:         os.Stdout,
		errOut:      os.Stderr,
		newExporter: defaultExporter,
	})
	if err := app.Run(os.Args); err != nil {
		logging.Error("cardctl failed", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}
