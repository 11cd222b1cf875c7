// Command searchcli runs one discovery search against a running API and
// prints the reconciled list as it evolves. It exercises the full client
// path: stream consumption, reconciliation, and the fallback ladder.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/staygenie/hotel-discovery/client"
	"github.com/staygenie/hotel-discovery/internal/core/domain"
)

func main() {
	baseURL := flag.String("base-url", "http://localhost:8080", "discovery API base URL")
	query := flag.String("query", "", "natural-language hotel query (required)")
	checkIn := flag.String("check-in", "", "check-in date, YYYY-MM-DD")
	checkOut := flag.String("check-out", "", "check-out date, YYYY-MM-DD")
	adults := flag.Int("adults", 2, "number of adults")
	children := flag.Int("children", 0, "number of children")
	timeout := flag.Duration("timeout", 60*time.Second, "session timeout per tier")
	placeholders := flag.Int("placeholders", 5, "skeleton rows shown before the first result")
	verbose := flag.Bool("verbose", false, "print every intermediate list update")
	flag.Parse()

	if *query == "" {
		fmt.Fprintln(os.Stderr, "searchcli: -query is required")
		flag.Usage()
		os.Exit(2)
	}

	defaults := domain.SearchParams{Adults: *adults, Children: *children}
	defaults.CheckIn = parseDate(*checkIn)
	defaults.CheckOut = parseDate(*checkOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := client.New(*baseURL, client.Options{
		SessionTimeout: *timeout,
		Placeholders:   *placeholders,
	})

	callbacks := client.SearchCallbacks{
		OnStatus: func(label string) {
			fmt.Printf("... %s\n", label)
		},
	}
	if *verbose {
		callbacks.OnUpdate = func(hotels []client.DisplayHotel) {
			printHotels(hotels)
			fmt.Println("---")
		}
	}

	result, err := c.Search(ctx, *query, defaults, callbacks)
	if err != nil {
		exitErr(err)
	}

	fmt.Printf("search %s finished via %s tier, %d hotels\n\n", result.SearchID, result.Tier, len(result.Hotels))
	printHotels(result.Hotels)
}

func parseDate(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		fmt.Fprintf(os.Stderr, "searchcli: bad date %q: %v\n", value, err)
		os.Exit(2)
	}
	return t
}

func printHotels(hotels []client.DisplayHotel) {
	for i, h := range hotels {
		fmt.Printf("%2d. [%5.1f] %s (%s, %s) %.0f %s/night\n",
			i+1, h.MatchScore, h.Offer.Name, h.Offer.City, h.Offer.Country,
			h.Offer.PricePerNight, h.Offer.Currency)
		if h.Narrative.WhyItMatches != "" {
			fmt.Printf("    %s\n", h.Narrative.WhyItMatches)
		}
		for _, hl := range h.Narrative.Highlights {
			fmt.Printf("    - %s\n", hl)
		}
	}
}

func exitErr(err error) {
	switch {
	case errors.Is(err, client.ErrResolution):
		fmt.Fprintln(os.Stderr, "searchcli: could not understand that query, try rephrasing")
	case errors.Is(err, client.ErrNoResults):
		fmt.Fprintln(os.Stderr, "searchcli: no hotels matched")
	default:
		fmt.Fprintf(os.Stderr, "searchcli: search failed: %v\n", err)
	}
	os.Exit(1)
}
