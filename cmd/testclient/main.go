package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dasmlab/lektor/pkg/server"
	"github.com/sirupsen/logrus"
)

var (
	serverAddr = flag.String("addr", "localhost:50051", "gRPC server address")
	mode       = flag.String("mode", "chat", "Call to make: chat, dictionary, translate, providers, switch")
	question   = flag.String("question", "", "Question for chat mode")
	word       = flag.String("word", "", "Word for dictionary mode")
	passage    = flag.String("context", "", "German passage used as context")
	textName   = flag.String("text", "", "Library text name for translate mode")
	page       = flag.Int("page", 0, "Page index (0-based) for translate mode")
	pageFile   = flag.String("file", "", "Path to a page JSON file for translate mode")
	provider   = flag.String("provider", "", "Provider for switch mode: openai or google")
	timeout    = flag.Duration("timeout", 2*time.Minute, "Call timeout")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	method, req, err := buildRequest()
	if err != nil {
		logger.WithError(err).Fatal("Invalid arguments")
	}

	logger.WithFields(logrus.Fields{
		"server": *serverAddr,
		"method": method,
	}).Info("Connecting to Lektor server...")

	conn, err := grpc.NewClient(*serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to server")
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := server.NewReaderClient(conn)
	startTime := time.Now()

	var resp map[string]any
	if err := client.Call(ctx, method, req, &resp); err != nil {
		logger.WithError(err).Fatal("Call failed")
	}

	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		logger.WithError(err).Fatal("Failed to format response")
	}

	separator := strings.Repeat("=", 80)
	fmt.Println()
	fmt.Println(separator)
	fmt.Println(strings.ToUpper(method) + " RESULT")
	fmt.Println(separator)
	fmt.Println(string(out))
	fmt.Println(separator)

	logger.WithFields(logrus.Fields{
		"duration_seconds": time.Since(startTime).Seconds(),
	}).Info("Call completed successfully")
}

// buildRequest maps the selected mode onto a gRPC method and payload.
func buildRequest() (string, any, error) {
	switch *mode {
	case "chat":
		if *question == "" {
			return "", nil, fmt.Errorf("-question is required for chat")
		}
		return "Chat", map[string]string{"question": *question, "context": *passage}, nil
	case "dictionary":
		if *word == "" {
			return "", nil, fmt.Errorf("-word is required for dictionary")
		}
		return "LookupWord", map[string]string{"word": *word, "context": *passage}, nil
	case "translate":
		if *pageFile != "" {
			data, err := os.ReadFile(*pageFile)
			if err != nil {
				return "", nil, fmt.Errorf("read page file: %w", err)
			}
			var pageData map[string]any
			if err := json.Unmarshal(data, &pageData); err != nil {
				return "", nil, fmt.Errorf("parse page file: %w", err)
			}
			return "Translate", map[string]any{"page_data": pageData}, nil
		}
		if *textName == "" {
			return "", nil, fmt.Errorf("-text or -file is required for translate")
		}
		return "TranslateStored", map[string]any{"text_name": *textName, "page_number": *page}, nil
	case "providers":
		return "ListProviders", struct{}{}, nil
	case "switch":
		return "SwitchProvider", map[string]string{"provider": *provider}, nil
	default:
		return "", nil, fmt.Errorf("unknown mode %q", *mode)
	}
}
