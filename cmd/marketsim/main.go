package main

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clearlab/batchmarket/codec"
	"github.com/clearlab/batchmarket/dataset"
	"github.com/clearlab/batchmarket/market"
)

const daemonName = "marketsim"

var (
	log = logging.Logger(daemonName)
	v   = viper.New()
)

// flag describes a configuration flag.
type flag struct {
	name        string
	defValue    interface{}
	description string
}

var flags = []flag{
	{name: "mechanism", defValue: "huang", description: "Clearing mechanism: huang, muda or p2p"},
	{name: "buyers", defValue: 10, description: "Number of buyers to generate"},
	{name: "sellers", defValue: 10, description: "Number of sellers to generate"},
	{name: "offset-buyers", defValue: 1.0, description: "Shift applied to every buyer's price"},
	{name: "offset-sellers", defValue: 0.0, description: "Shift applied to every seller's price"},
	{name: "seed", defValue: 0, description: "Random seed; 0 seeds from the clock"},
	{name: "p-coef", defValue: 0.5, description: "Peer-to-peer price interpolation: 1 buyer's price, 0 seller's"},
	{name: "eps", defValue: dataset.DefaultEps, description: "Resolution of the price and quantity sampling grid"},
	{name: "format", defValue: "text", description: "Output format: text or cbor"},
	{name: "output", defValue: "", description: "File to write the snapshot to; empty writes to stdout"},
	{name: "log-debug", defValue: false, description: "Enable debug logging"},
}

func init() {
	v.SetEnvPrefix("MARKETSIM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	for _, f := range flags {
		switch defval := f.defValue.(type) {
		case string:
			rootCmd.Flags().String(f.name, defval, f.description)
		case bool:
			rootCmd.Flags().Bool(f.name, defval, f.description)
		case int:
			rootCmd.Flags().Int(f.name, defval, f.description)
		case float64:
			rootCmd.Flags().Float64(f.name, defval, f.description)
		default:
			log.Fatalf("unknown flag type: %T", f.defValue)
		}
		v.SetDefault(f.name, f.defValue)
		if err := v.BindPFlag(f.name, rootCmd.Flags().Lookup(f.name)); err != nil {
			log.Fatalf("binding flag %s: %s", f.name, err)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:   daemonName,
	Short: "marketsim clears a randomly generated double-auction market",
	Long: `marketsim generates a population of uniform random bidders, clears it
with one of the available mechanisms and prints the outcome.`,
	PersistentPreRun: func(c *cobra.Command, args []string) {
		logging.SetAllLoggers(logging.LevelInfo)
		if v.GetBool("log-debug") {
			logging.SetAllLoggers(logging.LevelDebug)
		}
	},
	RunE: run,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(c *cobra.Command, args []string) error {
	seed := v.GetInt64("seed")
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	log.Debugf("seed %d", seed)

	bids := dataset.Generate(
		v.GetInt("buyers"), v.GetInt("sellers"),
		v.GetFloat64("offset-buyers"), v.GetFloat64("offset-sellers"),
		rng, v.GetFloat64("eps"))

	m := market.New()
	for _, b := range bids {
		m.AcceptBid(b)
	}

	mech := market.Mechanism(v.GetString("mechanism"))
	trans, _, err := m.Run(mech, market.WithRand(rng), market.WithPriceCoef(v.GetFloat64("p-coef")))
	if err != nil {
		return err
	}

	switch format := v.GetString("format"); format {
	case "text":
		printText(m)
		return nil
	case "cbor":
		snap := codec.Take(m.ID().String(), string(mech), m.Bids(), trans)
		data, err := codec.Encode(snap)
		if err != nil {
			return err
		}
		if out := v.GetString("output"); out != "" {
			return os.WriteFile(out, data, 0644)
		}
		_, err = os.Stdout.Write(data)
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func printText(m *market.Market) {
	fmt.Println("bids:")
	for id, b := range m.Bids().Bids() {
		fmt.Printf("  %d: %s\n", id, b)
	}
	fmt.Println("transactions:")
	for _, tr := range m.Transactions().Transactions() {
		fmt.Printf("  %s\n", tr)
	}
	s := m.Statistics(nil)
	if s.TradedFeasible {
		fmt.Printf("traded: %.2f%% of the maximum volume\n", s.PercentageTraded*100)
	}
	if s.WelfareFeasible {
		fmt.Printf("welfare: %.2f%% of the maximum\n", s.PercentageWelfare*100)
	}
	fmt.Printf("market profit: %.4f\n", s.Profits.Market)
}
