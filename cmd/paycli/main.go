package main

import (
	"InvoicePayer/internal/app"
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	task := flag.String("task", "verify", "Task to run: pay, verify or history")
	file := flag.String("file", "", "JSON request file for pay and verify")
	invoice := flag.String("invoice", "", "Invoice number to filter the history by")
	limit := flag.Int("limit", 20, "Number of attempts shown by history")
	configPath := flag.String("config", "config.yml", "Path to the YAML configuration file")
	flag.Parse()

	application, err := app.New(*configPath)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	log.Printf("Running task: %s", *task)

	switch *task {
	case "pay":
		err = application.RunPayment(ctx, *file, os.Stdout)
	case "verify":
		err = application.RunVerification(ctx, *file, os.Stdout)
	case "history":
		err = application.PrintHistory(ctx, *invoice, *limit, os.Stdout)
	default:
		log.Printf("Unknown task: %s.", *task)
		err = flag.ErrHelp
	}

	stop()
	application.Close()
	if err != nil {
		log.Fatalf("Task %s failed: %v", *task, err)
	}
}
