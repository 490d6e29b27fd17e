// Command uncheckederr reports discarded *sdk.SensorError results.
//
//	go run ./cmd/uncheckederr ./...
package main

import (
	"golang.org/x/tools/go/analysis/singlechecker"

	"github.com/banshee-data/cepton-sdk-go/internal/analysis/uncheckederr"
)

func main() {
	singlechecker.Main(uncheckederr.Analyzer)
}
