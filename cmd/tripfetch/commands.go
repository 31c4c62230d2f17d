package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/wanderdata/tripfetch/pkg/cache"
	"github.com/wanderdata/tripfetch/pkg/catalog"
	"github.com/wanderdata/tripfetch/pkg/config"
	"github.com/wanderdata/tripfetch/pkg/fetch"
	"github.com/wanderdata/tripfetch/pkg/logging"
	"github.com/wanderdata/tripfetch/pkg/ratelimit"
	"github.com/wanderdata/tripfetch/pkg/runner"
	"github.com/wanderdata/tripfetch/pkg/source"
	"github.com/wanderdata/tripfetch/pkg/sqlite"
	"github.com/wanderdata/tripfetch/pkg/store"
)

// sourceNames lists every source the CLI can run, in display order.
var sourceNames = []string{
	"amadeus",
	"equaldex",
	"horoscope",
	"numbeo",
	"travelwarning",
	"unsplash",
}

// app carries everything a command needs after bootstrap.
type app struct {
	cfg    config.Config
	client *fetch.Client
	redis  *redis.Client
}

func newApp(cmd *cli.Command) (*app, error) {
	cfg, err := config.Load(cmd.String("env"))
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Format == "console" || cmd.Bool("pretty"),
		Output: os.Stderr,
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		logCfg.Level = logging.LogLevel(lvl)
	}
	logging.Setup(logCfg)

	fetchCfg := fetch.Config{
		Timeout:   cfg.Timeout,
		Pace:      cfg.Pace,
		UserAgent: cfg.UserAgent,
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		fetchCfg.Cache = cache.NewManager(redisClient)
		fetchCfg.Quota = ratelimit.NewTracker(redisClient, logging.NewLogger("ratelimit"))
	}

	client, err := fetch.New(fetchCfg)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, client: client, redis: redisClient}, nil
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
}

// countries loads the country catalog the per-country sources fan out
// over.
func (a *app) countries() ([]catalog.Item, error) {
	if a.cfg.CountriesCSV == "" {
		return nil, fmt.Errorf("TRIPFETCH_COUNTRIES_CSV is required for this source")
	}
	f, err := os.Open(a.cfg.CountriesCSV)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return catalog.Countries(f)
}

// routes loads the flight route catalog for the amadeus source.
func (a *app) routes() ([]catalog.Item, error) {
	if a.cfg.RoutesCSV == "" {
		return nil, fmt.Errorf("TRIPFETCH_ROUTES_CSV is required for this source")
	}
	f, err := os.Open(a.cfg.RoutesCSV)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return catalog.Routes(f, a.cfg.RouteOrigins)
}

// buildSource constructs a source by name. Constructor errors are the
// fatal setup failures: missing credentials or catalogs abort before
// anything is fetched.
func (a *app) buildSource(name string) (source.Source, error) {
	src := a.cfg.Source
	switch name {
	case "horoscope":
		return source.NewHoroscope(src.HoroscopeToken, src.HoroscopeBaseURL)
	case "unsplash":
		countries, err := a.countries()
		if err != nil {
			return nil, err
		}
		return source.NewUnsplash(src.UnsplashAccessKey, src.UnsplashBaseURL, countries)
	case "travelwarning":
		return source.NewTravelWarning(src.TravelWarningBaseURL, a.cfg.Timeout), nil
	case "numbeo":
		countries, err := a.countries()
		if err != nil {
			return nil, err
		}
		return source.NewNumbeo(src.NumbeoAPIKey, src.NumbeoBaseURL, countries)
	case "equaldex":
		countries, err := a.countries()
		if err != nil {
			return nil, err
		}
		return source.NewEqualdex(src.EqualdexAPIKey, src.EqualdexBaseURL, countries)
	case "amadeus":
		routes, err := a.routes()
		if err != nil {
			return nil, err
		}
		return source.NewAmadeus(src.AmadeusClientID, src.AmadeusClientSecret, src.AmadeusBaseURL, routes)
	default:
		return nil, fmt.Errorf("unknown source %q (run 'tripfetch sources')", name)
	}
}

func (a *app) newRunner(cmd *cli.Command, src source.Source) (*runner.Runner, error) {
	runCfg := runner.Config{
		StorePath:    a.cfg.StorePath(src.Name()),
		Backoff:      a.cfg.Backoff,
		PersistEvery: a.cfg.PersistEvery,
	}
	if s := cmd.String("backoff"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("invalid --backoff: %w", err)
		}
		runCfg.Backoff = d
	}
	if err := os.MkdirAll(a.cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return runner.New(a.client, runCfg)
}

func fetchAction(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: tripfetch fetch <source>")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	src, err := a.buildSource(name)
	if err != nil {
		return err
	}
	r, err := a.newRunner(cmd, src)
	if err != nil {
		return err
	}

	if cmd.Bool("dry-run") {
		ids, err := r.Plan(ctx, src)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d items to fetch\n", name, len(ids))
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	}

	summary, err := r.Run(ctx, src)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d succeeded, %d failed, %d skipped (%d backoffs, %s)\n",
		summary.Source, summary.Succeeded, summary.Failed, summary.Skipped,
		summary.Backoffs, summary.Duration.Round(time.Second))
	return nil
}

func sourcesAction(ctx context.Context, cmd *cli.Command) error {
	for _, name := range sourceNames {
		fmt.Println(name)
	}
	return nil
}

func exportAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := store.Load(a.cfg.StorePath("travelwarning"))
	if err != nil {
		return err
	}

	sink, err := sqlite.Open(a.cfg.WarningsDB)
	if err != nil {
		return err
	}
	defer sink.Close()

	n, err := sink.Export(ctx, st.Records(), a.cfg.WarningsMinRows)
	if err != nil {
		return err
	}
	fmt.Printf("exported %d advisories to %s\n", n, a.cfg.WarningsDB)
	return nil
}

func statusAction(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: tripfetch status <source>")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := store.Load(a.cfg.StorePath(name))
	if err != nil {
		return err
	}

	kinds := map[string]int{}
	for _, rec := range st.Records() {
		if rec.Status == store.StatusFailure && rec.Error != nil {
			kinds[string(rec.Error.Kind)]++
		}
	}

	fmt.Printf("%s: %d records, %d successes, %d failures\n",
		name, st.Len(), st.SuccessCount(), st.Len()-st.SuccessCount())
	names := make([]string, 0, len(kinds))
	for kind := range kinds {
		names = append(names, kind)
	}
	sort.Strings(names)
	for _, kind := range names {
		fmt.Printf("  %s: %d\n", kind, kinds[kind])
	}
	return nil
}
