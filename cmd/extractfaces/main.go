package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imgtools/extractfaces/utils"
	"github.com/joho/godotenv"
)

// Version indicates the current build version.
var Version = "dev"

func main() {
	// A missing .env file is not an error: the environment and the flags are enough.
	_ = godotenv.Load()

	// Stop between two files on Ctrl+C (SIGINT) or SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.LookupEnv).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, utils.DecorateText(err.Error(), utils.ErrorMessage))
		os.Exit(1)
	}
}
