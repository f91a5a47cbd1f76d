package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"eatoff/internal/config"
	"eatoff/internal/domain/model"
	"eatoff/internal/infra/catalog"
	"eatoff/internal/infra/geo"
	"eatoff/internal/infra/kv"
	"eatoff/internal/marketplace"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

const usage = `usage: locate [-v] <command>

commands:
  resolve      保存済みの選択を使う。無ければ検出して決める
  refresh      保存済みの選択を消して検出し直す
  set <CODE>   国コードでマーケットプレイスを手動選択する
  show         保存済みの状態を表示する
`

func main() {
	verbose := flag.Bool("v", false, "debug log")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	logger := log.New("locate")
	logger.SetLevel(log.WARN)
	if *verbose {
		logger.SetLevel(log.DEBUG)
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load()

	if err := run(flag.Args(), logger); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string, logger *log.Logger) error {
	cfg, err := config.LoadDevice()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	//端末ローカルの保存先
	device, err := kv.OpenSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer device.Close()

	store := marketplace.NewStore(device)
	source := catalog.NewHTTPCatalog(cfg.APIBaseURL, nil, logger)
	locator := marketplace.NewCachedLocator(geo.NewStaticLocator(cfg.Latitude, cfg.Longitude), nil)
	geocoder := geo.NewNominatim(cfg.GeocoderURL, "", nil)

	resolver := marketplace.NewResolver(source, locator, geocoder, store, marketplace.Options{
		GeoTimeout: cfg.GeoTimeout,
		Logger:     logger,
	})

	switch args[0] {
	case "resolve":
		st, err := resolver.Start(ctx)
		resolver.Wait()
		if err != nil {
			return err
		}
		return printState(st)

	case "refresh":
		st, err := resolver.Refresh(ctx)
		if err != nil {
			return err
		}
		return printState(st)

	case "set":
		if len(args) < 2 {
			return fmt.Errorf("set: country code is required")
		}
		code, err := model.ParseCountryCode(args[1])
		if err != nil {
			return err
		}

		list, err := source.List(ctx)
		if err != nil {
			return err
		}
		selected := marketplace.SelectByCountry(marketplace.Active(list), code)
		if selected == nil {
			return fmt.Errorf("set: no active marketplace for %s", code)
		}
		if err := resolver.SetManually(ctx, *selected); err != nil {
			return err
		}
		return printState(resolver.State())

	case "show":
		m, err := store.Marketplace(ctx)
		if err != nil {
			return fmt.Errorf("show: no stored marketplace: %w", err)
		}
		st := marketplace.State{Marketplace: &m}
		if loc, err := store.DetectedCountry(ctx); err == nil {
			st.Detected = &loc
		}
		return printState(st)

	default:
		return fmt.Errorf("unknown command %q", strings.Join(args, " "))
	}
}

type stateOutput struct {
	Marketplace *model.Marketplace      `json:"marketplace"`
	Detected    *model.DetectedLocation `json:"detected_country,omitempty"`
	Available   []model.Marketplace     `json:"available,omitempty"`
	CatalogErr  string                  `json:"catalog_error,omitempty"`
}

func printState(st marketplace.State) error {
	out := stateOutput{
		Marketplace: st.Marketplace,
		Detected:    st.Detected,
		Available:   marketplace.Active(st.Catalog),
	}
	if st.CatalogErr != nil {
		out.CatalogErr = st.CatalogErr.Error()
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
