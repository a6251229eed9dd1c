package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Optional .env for LOG_LEVEL / LOG_FORMAT; absence is fine.
	_ = godotenv.Load()
	initLogging()

	if len(os.Args) > 1 {
		cmd := os.Args[1]
		switch cmd {
		case "train":
			if err := RunTrainCommand(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "eval":
			if err := RunEvalCommand(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "help", "-h", "--help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
			printUsage()
			os.Exit(1)
		}
	}

	// Default: show help
	printUsage()
}

// initLogging configures the process-wide logrus logger from the
// environment. LOG_FORMAT=json switches to structured JSON output.
func initLogging() {
	logger := logrus.StandardLogger()
	logger.SetOutput(os.Stdout)

	if os.Getenv("LOG_FORMAT") == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	}

	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
}

func printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  tpp-embed [command] [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  train       Train the embedding model on event-sequence data")
	fmt.Println("  eval        Evaluate a saved checkpoint on a dataset")
	fmt.Println("  help        Show this help message")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  tpp-embed train -train=train.jsonl -val=val.jsonl -epochs=3 -model=encoder.bin")
	fmt.Println("  tpp-embed train -config=run.yaml")
	fmt.Println("  tpp-embed eval -model=encoder.bin -data=test.jsonl")
	fmt.Println()
}
