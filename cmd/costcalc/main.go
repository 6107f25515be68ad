package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/shipping-cost/internal/application"
	"github.com/eugenenazirov/shipping-cost/internal/calculator"
	"github.com/eugenenazirov/shipping-cost/internal/config"
	"github.com/eugenenazirov/shipping-cost/internal/geo"
	"github.com/eugenenazirov/shipping-cost/internal/logging"
	"github.com/eugenenazirov/shipping-cost/internal/quote"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "costcalc: %v\n", err)
		os.Exit(1)
	}
}

type costFlags struct {
	width, height, depth, weight, distance float64
	strict                                 bool
	from, to                               string
	configFile, envFile                    string
	geocoderURL, routerURL                 string
	jsonOutput, verbose                    bool
}

func run(ctx context.Context, args []string, out io.Writer) error {
	app := kingpin.New("costcalc", "Shipping cost calculator - prices a parcel by size tier, weight and distance")
	app.Writer(out)

	var f costFlags
	costCmd := app.Command("cost", "Price a parcel for a known distance, or between two addresses with --from/--to.").Default()
	costCmd.Flag("width", "Parcel width").Required().Float64Var(&f.width)
	costCmd.Flag("height", "Parcel height").Required().Float64Var(&f.height)
	costCmd.Flag("depth", "Parcel depth").Required().Float64Var(&f.depth)
	costCmd.Flag("weight", "Parcel weight in kilograms").Required().Float64Var(&f.weight)
	costCmd.Flag("distance", "Route distance in meters (ignored with --from/--to)").Default("0").Float64Var(&f.distance)
	costCmd.Flag("strict", "Only accept exact tier matches").BoolVar(&f.strict)
	costCmd.Flag("from", "Origin address").StringVar(&f.from)
	costCmd.Flag("to", "Destination address").StringVar(&f.to)
	costCmd.Flag("config", "Path to YAML configuration file").StringVar(&f.configFile)
	costCmd.Flag("env-file", "Path to a .env file").StringVar(&f.envFile)
	costCmd.Flag("geocoder-url", "Base URL of the Nominatim-compatible geocoder").StringVar(&f.geocoderURL)
	costCmd.Flag("router-url", "Base URL of the OSRM-compatible router").StringVar(&f.routerURL)
	costCmd.Flag("json", "Print the result as JSON").BoolVar(&f.jsonOutput)
	costCmd.Flag("verbose", "Log upstream calls to stderr").Short('v').BoolVar(&f.verbose)

	tiersCmd := app.Command("tiers", "List the size tiers and their coefficients.")
	tiersJSON := tiersCmd.Flag("json", "Print the table as JSON").Bool()

	cmd, err := app.Parse(args)
	if err != nil {
		return err
	}

	calc := calculator.New()
	switch cmd {
	case tiersCmd.FullCommand():
		return printTiers(out, calc.Tiers(), *tiersJSON)
	default:
		return runCost(ctx, out, calc, f)
	}
}

func runCost(ctx context.Context, out io.Writer, calc calculator.Calculator, f costFlags) error {
	from, to := strings.TrimSpace(f.from), strings.TrimSpace(f.to)
	if from == "" && to == "" {
		est, err := calc.Estimate(calculator.Request{
			Width:    f.width,
			Height:   f.height,
			Depth:    f.depth,
			Weight:   f.weight,
			Distance: f.distance,
			Strict:   f.strict,
		})
		if err != nil {
			return err
		}
		if f.jsonOutput {
			return writeJSON(out, est)
		}
		printEstimate(out, est)
		return nil
	}
	if from == "" || to == "" {
		return fmt.Errorf("--from and --to must be given together: %w", geo.ErrEmptyAddress)
	}

	overrides := &config.CLIOverrides{
		ConfigFile: f.configFile,
		EnvFile:    f.envFile,
	}
	if f.geocoderURL != "" {
		overrides.GeocoderURL = &f.geocoderURL
	}
	if f.routerURL != "" {
		overrides.RouterURL = &f.routerURL
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger := zap.NewNop()
	if f.verbose {
		if logger, err = logging.New(); err != nil {
			return err
		}
		defer func() { _ = logger.Sync() }()
	}

	svc := application.NewQuoteService(cfg, calc, nil, logger)
	q, err := svc.Quote(ctx, quote.Request{
		From: from,
		To:   to,
		Parcel: quote.Parcel{
			Width:  f.width,
			Height: f.height,
			Depth:  f.depth,
			Weight: f.weight,
			Strict: f.strict,
		},
	})
	if err != nil {
		var statusErr *geo.StatusError
		if errors.As(err, &statusErr) {
			return fmt.Errorf("%s returned HTTP %d", statusErr.Service, statusErr.Code)
		}
		return err
	}

	if f.jsonOutput {
		return writeJSON(out, q)
	}
	fmt.Fprintf(out, "from:            %g, %g\n", q.From.Lat, q.From.Lon)
	fmt.Fprintf(out, "to:              %g, %g\n", q.To.Lat, q.To.Lon)
	fmt.Fprintf(out, "distance (m):    %g\n", q.DistanceMeters)
	printEstimate(out, q.Estimate)
	return nil
}

func printEstimate(out io.Writer, est calculator.Estimate) {
	fmt.Fprintf(out, "mode:            %s\n", est.Mode)
	fmt.Fprintf(out, "base cost:       %g\n", est.BaseCost)
	fmt.Fprintf(out, "size multiplier: %g\n", est.SizeMultiplier)
	fmt.Fprintf(out, "distance coef:   %g\n", est.DistanceCoef)
	fmt.Fprintf(out, "total:           %g\n", est.Total)
}

func printTiers(out io.Writer, tiers []calculator.SizeTier, asJSON bool) error {
	if asJSON {
		return writeJSON(out, tiers)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tWIDTH\tHEIGHT\tDEPTH\tMAX WEIGHT\tSIZE COEF\tWEIGHT COEF")
	for i, t := range tiers {
		fmt.Fprintf(tw, "%d\t%g\t%g\t%g\t%g\t%g\t%g\n", i, t.Width, t.Height, t.Depth, t.MaxWeight, t.SizeCoef, t.WeightCoef)
	}
	return tw.Flush()
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
