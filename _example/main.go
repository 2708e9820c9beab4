package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/jkbrsn/pickcolor"
)

func main() {
	args := os.Args
	if len(args) < 4 {
		log.Fatalf("Usage: go run main.go PICKER TEXT OFFSET")
	}
	pickerPath, text := args[1], args[2]
	offset, err := strconv.Atoi(args[3])
	if err != nil {
		log.Fatalf("Failed to parse offset: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Locate the literal under the cursor without starting the picker
	r, ok := pickcolor.WordRangeAt(text, offset)
	if !ok {
		log.Fatalf("No color literal at offset %d", offset)
	}
	doc := &pickcolor.Document{Text: text}
	seed, err := doc.Slice(r)
	if err != nil {
		log.Fatalf("Failed to read literal: %v", err)
	}

	// Pick with the bare invoker
	picked, ok, err := pickcolor.Pick(ctx, pickerPath, seed, pickcolor.FontSettings{})
	if err != nil {
		log.Fatalf("Failed to run picker: %v", err)
	}
	fmt.Printf("Basic example\nSeed: %s\nPicked: %s (ok=%t)\n\n", seed, picked, ok)

	// Pick and substitute in place with the full extension over an in-memory editor
	updated, result, err := pickcolor.PickInText(ctx, pickerPath, text, offset, pickcolor.FontSettings{})
	if err != nil {
		log.Fatalf("Failed to pick color: %v", err)
	}
	fmt.Printf("Extension example\nText: %s\n\nResult:\n%+v\n", updated, result)
}
