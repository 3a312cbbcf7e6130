// Command tripline evaluates saved trigger rules against a trajectory
// database: run a rule over a time range, manage the database schema, or
// render an HTML report of match activity.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/tripline/internal/objdb"
	"github.com/banshee-data/tripline/internal/rule"
	"github.com/banshee-data/tripline/internal/trigger"
	"github.com/banshee-data/tripline/internal/version"
)

func main() {
	log.SetFlags(0)

	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "search":
		runSearch(os.Args[2:])
	case "migrate":
		runMigrate(os.Args[2:])
	case "report":
		runReport(os.Args[2:])
	case "version":
		log.Printf("tripline %s (%s, built %s)", version.Version, version.GitSHA, version.BuildTime)
	case "help", "-h", "--help":
		printHelp()
	default:
		log.Printf("unknown command %q", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Fprintln(os.Stderr, `Usage: tripline <command> [flags]

Commands:
  search    evaluate a rule file against an object database
  migrate   manage the object database schema (up, down, version)
  report    render an HTML activity report for a rule
  version   print build information

Run 'tripline <command> -h' for command flags.`)
}

func compileRule(rulePath string, store *objdb.Store) *rule.Rule {
	def, err := rule.LoadDef(rulePath)
	if err != nil {
		log.Fatalf("load rule: %v", err)
	}
	r, err := rule.Compile(def, store)
	if err != nil {
		log.Fatalf("compile rule: %v", err)
	}
	return r
}

func runSearch(args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	dbPath := fs.String("db", "objects.db", "object database path")
	rulePath := fs.String("rule", "", "rule definition JSON file")
	start := fs.Int64("start", trigger.TimeUnbounded, "start time (ms, -1 = open)")
	stop := fs.Int64("stop", trigger.TimeUnbounded, "stop time (ms, -1 = open)")
	increment := fs.Int64("increment", 0, "piecemeal realtime window (ms, 0 = single search)")
	asRanges := fs.Bool("ranges", false, "report contiguous ranges instead of individual matches")
	fs.Parse(args)

	if *rulePath == "" {
		log.Fatal("search: -rule is required")
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

	if *asRanges {
		if *increment > 0 {
			log.Fatal("search: -ranges and -increment are mutually exclusive")
		}
		ranges, err := r.Root.SearchForRanges(*start, *stop, spans)
		if err != nil {
			log.Fatalf("search: %v", err)
		}
		for _, rg := range ranges {
			fmt.Printf("object %d: t=%d..%d (frames %d..%d)\n",
				rg.ObjectID, rg.First.TimeMs, rg.Last.TimeMs, rg.First.Frame, rg.Last.Frame)
		}
		log.Printf("%d range(s)", len(ranges))
		return
	}

	matches, err := rule.NewRunner(r, *increment).Run(*start, *stop, spans)
	if err != nil {
		log.Fatalf("search: %v", err)
	}
	for _, m := range matches {
		fmt.Printf("object %d: t=%d frame=%d\n", m.ObjectID, m.TimeMs, m.Frame)
	}

	hints := r.Hints()
	log.Printf("%d match(es); clips rewind %dms / extend %dms, combine=%v",
		len(matches), hints.RewindMs, hints.ExtendMs, hints.CombineClips)
}

func runMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	dbPath := fs.String("db", "objects.db", "object database path")
	fs.Parse(args)

	action := "up"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}

	store, err := objdb.Open(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	switch action {
	case "up":
		if err := store.Migrate(); err != nil {
			log.Fatalf("migrate up: %v", err)
		}
		log.Println("schema is up to date")
	case "down":
		if err := store.MigrateDown(); err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		log.Println("rolled back one migration")
	case "version":
		version, dirty, err := store.MigrateVersion()
		if err != nil {
			log.Fatalf("migrate version: %v", err)
		}
		log.Printf("schema version %d (dirty=%v)", version, dirty)
	default:
		log.Fatalf("unknown migrate action %q (want up, down or version)", action)
	}
}
