package main

import (
	"log"

	"github.com/revq/revq/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		log.Fatalf("revq: %v", err)
	}
}
