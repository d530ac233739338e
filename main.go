package main

import (
	"log"

	"github.com/virot/tamemycerts/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
