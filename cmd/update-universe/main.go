package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"quant-backtest/internal/data"
)

func main() {
	var (
		outputPath = flag.String("output", "", "Output file path (default: ./data/universe.json)")
		seedFile   = flag.String("seed", "", "Path to existing universe file to use as seed")
		tickers    = flag.String("tickers", "", "Extra comma-separated tickers to add")
		benchmark  = flag.String("benchmark", "XU100.IS", "Benchmark index ticker")
		rps        = flag.Float64("rps", 2, "Maximum Yahoo requests per second")
	)
	flag.Parse()

	if *outputPath == "" {
		*outputPath = data.DefaultUniversePath()
	}

	// Seed with the BIST 100 list, then any existing file and --tickers
	seed := map[string]data.Instrument{}
	for _, t := range data.BIST100Constituents() {
		seed[t] = data.Instrument{Ticker: t, BIST100: true}
	}
	seedPath := *seedFile
	if seedPath == "" {
		seedPath = *outputPath
	}
	if u, err := data.LoadUniverse(seedPath); err == nil {
		for _, in := range u.Instruments {
			if prev, ok := seed[in.Ticker]; ok {
				in.BIST100 = prev.BIST100
			}
			seed[in.Ticker] = in
		}
		fmt.Printf("Loaded %d existing instruments from %s\n", len(u.Instruments), seedPath)
	}
	for _, t := range strings.Split(*tickers, ",") {
		if t = strings.TrimSpace(t); t != "" {
			if _, ok := seed[t]; !ok {
				seed[t] = data.Instrument{Ticker: t}
			}
		}
	}
	if *benchmark != "" {
		if _, ok := seed[*benchmark]; !ok {
			seed[*benchmark] = data.Instrument{Ticker: *benchmark, Type: "INDEX"}
		}
	}

	client := data.NewYahooClient("", *rps, nil)
	instruments := refreshMetadata(context.Background(), client, seed)

	u := &data.Universe{
		Benchmark:   *benchmark,
		UpdatedAt:   time.Now().Format(time.RFC3339),
		Instruments: instruments,
	}
	if err := data.SaveUniverse(u, *outputPath); err != nil {
		log.Fatalf("Failed to save universe: %v", err)
	}
	fmt.Printf("Saved %d instruments to %s\n", len(instruments), *outputPath)
}

// refreshMetadata queries Yahoo for each seeded ticker. Tickers that fail keep
// their seed metadata.
func refreshMetadata(ctx context.Context, client *data.YahooClient, seed map[string]data.Instrument) []data.Instrument {
	names := make([]string, 0, len(seed))
	for t := range seed {
		names = append(names, t)
	}
	sort.Strings(names)

	fmt.Printf("Querying %d instruments...\n", len(names))
	updated := 0
	out := make([]data.Instrument, 0, len(names))
	for _, t := range names {
		in := seed[t]
		meta, err := client.Meta(ctx, t)
		if err != nil {
			fmt.Printf("  Warning: failed to query %s: %v\n", t, err)
			out = append(out, in)
			continue
		}
		in.Exchange = meta.ExchangeName
		in.Currency = meta.Currency
		if meta.InstrumentType != "" {
			in.Type = meta.InstrumentType
		}
		if in.Name == "" {
			in.Name = strings.TrimSuffix(t, ".IS")
		}
		out = append(out, in)
		updated++
		fmt.Printf("  Updated: %s (%s %s)\n", t, in.Exchange, in.Currency)
	}
	fmt.Printf("Successfully updated %d/%d instruments\n", updated, len(names))
	return out
}
