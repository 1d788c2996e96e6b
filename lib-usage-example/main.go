package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/anidataset/anidataset/pkg/anilist"
	"github.com/anidataset/anidataset/pkg/export"
	"github.com/anidataset/anidataset/pkg/fetch"
	"github.com/sirupsen/logrus"
)

func main() {
	// Usage: go run *.go -year 2024 -windows 2 -pages 1 -out /tmp/anime

	yearFlag := flag.Int("year", 2024, "Reference year")
	windowsFlag := flag.Int("windows", 2, "Number of windows to fetch, newest first")
	pagesFlag := flag.Int("pages", 1, "Pages per window")
	outFlag := flag.String("out", ".", "Output directory")

	flag.Parse()

	log := logrus.New()

	client, err := anilist.NewClient(anilist.Config{Logger: log})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	ds, summary, err := fetch.Run(context.Background(), fetch.Config{
		Source:        client,
		ReferenceYear: *yearFlag,
		WindowLimit:   *windowsFlag,
		SamplePages:   *pagesFlag,
		Log:           log,
	})
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	for _, w := range summary.Windows {
		fmt.Println(w.Window.Label(), w.Status, w.Fetched, w.Added)
	}

	// Only CSV, the other encodings work the same way
	for _, r := range export.Export(ds.Rows(), export.Options{Dir: *outFlag, Encodings: []export.Encoding{export.CSV}}) {
		if r.Err != nil {
			fmt.Println(r.Err)
			continue
		}
		fmt.Println("wrote", r.Rows, "rows to", r.Path)
	}
}
