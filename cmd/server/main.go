package main

import (
	"log"

	"ticketCountManagement/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Fatalf("boletas: %v", err)
	}
}
