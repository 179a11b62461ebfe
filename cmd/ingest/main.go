// Offline inspection of a raw transaction CSV: clean it and print the
// headline revenue numbers without starting the API server.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/schollz/progressbar/v3"

	"github.com/opensource-commerce/kestrel/internal/cleaner"
	"github.com/opensource-commerce/kestrel/internal/source"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	file := flag.String("file", os.Getenv("KESTREL_CSV_PATH"), "path to the raw transactions CSV")
	limit := flag.Int("limit", 0, "maximum number of rows to read (0 = all)")
	top := flag.Int("top", 10, "number of countries to print")
	flag.Parse()

	if *file == "" {
		log.Fatalf("Usage: ingest --file data.csv [--limit N] [--top N]")
	}

	ctx := context.Background()

	raw, err := source.NewCSVSource(*file).GetRawTransactions(ctx, *limit)
	if err != nil {
		log.Fatalf("read csv: %v", err)
	}

	dataset, err := cleaner.New().Clean(raw)
	if err != nil {
		log.Fatalf("clean: %v", err)
	}
	log.Printf("[INFO] rows read=%d kept=%d", len(raw.Rows), dataset.Len())

	bar := progressbar.Default(int64(dataset.Len()))

	var totalRevenue, totalQuantity float64
	countryRevenue := make(map[string]float64)
	for _, tx := range dataset.Transactions {
		totalRevenue += tx.TotalPrice
		totalQuantity += tx.Quantity
		countryRevenue[tx.Country] += tx.TotalPrice
		bar.Add(1)
	}

	meanQuantity := 0.0
	if dataset.Len() > 0 {
		meanQuantity = totalQuantity / float64(dataset.Len())
	}

	fmt.Printf("\ntotal_revenue=%.2f total_quantity=%.0f mean_quantity=%.4f\n\n",
		totalRevenue, totalQuantity, meanQuantity)

	countries := make([]string, 0, len(countryRevenue))
	for name := range countryRevenue {
		countries = append(countries, name)
	}
	sort.Slice(countries, func(i, j int) bool {
		return countryRevenue[countries[i]] > countryRevenue[countries[j]]
	})
	if len(countries) > *top {
		countries = countries[:*top]
	}
	for i, name := range countries {
		fmt.Printf("%2d. %-30s %.2f\n", i+1, name, countryRevenue[name])
	}
}
