package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/tripline/internal/objdb"
	"github.com/banshee-data/tripline/internal/trigger"
)

func runReport(args []string) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	dbPath := fs.String("db", "objects.db", "object database path")
	rulePath := fs.String("rule", "", "rule definition JSON file")
	start := fs.Int64("start", trigger.TimeUnbounded, "start time (ms, -1 = open)")
	stop := fs.Int64("stop", trigger.TimeUnbounded, "stop time (ms, -1 = open)")
	bucketMs := fs.Int64("bucket", 60_000, "histogram bucket width (ms)")
	out := fs.String("out", "report.html", "output HTML file")
	fs.Parse(args)

	if *rulePath == "" {
		log.Fatal("report: -rule is required")
	}
	if *bucketMs <= 0 {
		log.Fatal("report: -bucket must be positive")
	}

	store, err := objdb.Open(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	r := compileRule(*rulePath, store)
	if r.Camera != "" {
		store.SetCameraFilter(r.Camera)
	}

	spans, err := store.GetProcSizesMsRange(*start, *stop)
	if err != nil {
		log.Fatalf("load processing sizes: %v", err)
	}

	matches, err := r.Root.Search(*start, *stop, trigger.ModeSingle, spans)
	if err != nil {
		log.Fatalf("search: %v", err)
	}
	if len(matches) == 0 {
		log.Println("no matches; nothing to report")
		return
	}

	labels, counts := bucketMatches(matches, *bucketMs)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "tripline report",
			Width:     "1200px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    r.Name,
			Subtitle: fmt.Sprintf("%d matches, %s buckets", len(matches), time.Duration(*bucketMs)*time.Millisecond),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels)
	bar.AddSeries("matches", counts)

	f, err := os.Create(*out)
	if err != nil {
		log.Fatalf("create report file: %v", err)
	}
	defer f.Close()
	if err := bar.Render(f); err != nil {
		log.Fatalf("render report: %v", err)
	}
	log.Printf("wrote %s (%d matches in %d buckets)", *out, len(matches), len(counts))
}

// bucketMatches folds matches into fixed-width time buckets, returning a
// label and a bar value per bucket in time order. Empty buckets between
// occupied ones are kept so gaps stay visible.
func bucketMatches(matches []trigger.Match, bucketMs int64) ([]string, []opts.BarData) {
	counts := make(map[int64]int)
	for _, m := range matches {
		counts[m.TimeMs/bucketMs]++
	}

	buckets := make([]int64, 0, len(counts))
	for b := range counts {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })

	var labels []string
	var data []opts.BarData
	for b := buckets[0]; b <= buckets[len(buckets)-1]; b++ {
		labels = append(labels, fmt.Sprintf("%ds", b*bucketMs/1000))
		data = append(data, opts.BarData{Value: counts[b]})
	}
	return labels, data
}
