package main

import (
	"context"
	"errors"
	"log"
	"os"

	"github.com/dmitrijs2005/driveindex/internal/app"
	"github.com/dmitrijs2005/driveindex/internal/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(cfg)

	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}

	err = a.Run(ctx, os.Args[1:], os.Stdin, os.Stdout)
	if cerr := a.Close(); cerr != nil {
		log.Printf("close: %v", cerr)
	}

	if err != nil {
		log.Printf("%v", err)
		if errors.Is(err, app.ErrUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}

}
