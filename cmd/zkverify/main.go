package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"xdao.co/zkverify/config"
	"xdao.co/zkverify/dispatch"
	"xdao.co/zkverify/orchestrator"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	root := newRootCommand(out, errOut)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(errOut, "FAILED to run the application: %v\n", err)
		return 1
	}
	return 0
}

// cli carries what every subcommand needs once flags are parsed.
type cli struct {
	v      *viper.Viper
	out    io.Writer
	errOut io.Writer
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	c := &cli{v: viper.New(), out: out, errOut: errOut}
	root := &cobra.Command{
		Use:   "zkverify",
		Short: "Submit zero-knowledge proof verification transactions to a Fabric gateway",
		Long: "zkverify connects to a Fabric gateway peer, generates groth16 and plonk proof\n" +
			"artifacts and submits one verification transaction per protocol and curve.\n\n" +
			"Every flag can also be set through the environment variable named in its help.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(errOut)
	config.RegisterFlags(root.PersistentFlags())
	root.PersistentPreRunE = func(*cobra.Command, []string) error {
		return config.Bind(c.v, root.PersistentFlags())
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the full sequence: contract info, generate, submit every proof",
			Args:  cobra.NoArgs,
			RunE:  c.runVerify,
		},
		&cobra.Command{
			Use:   "list",
			Short: "Show which artifact each matrix entry would submit, without connecting",
			Args:  cobra.NoArgs,
			RunE:  c.runList,
		},
		&cobra.Command{
			Use:   "info",
			Short: "Connect and print the contract information",
			Args:  cobra.NoArgs,
			RunE:  c.runInfo,
		},
	)
	return root
}

func (c *cli) load() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(c.v)
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}
	lvl, _ := zerolog.ParseLevel(cfg.LogLevel)
	log := zerolog.New(zerolog.ConsoleWriter{Out: c.errOut, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
	return cfg, log, nil
}

func (c *cli) runVerify(cmd *cobra.Command, _ []string) error {
	cfg, log, err := c.load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	report, err := orchestrator.New(cfg, orchestrator.Deps{Log: log}).Run(ctx)
	if report != nil {
		printReport(c.out, report)
	}
	return err
}

func (c *cli) runInfo(cmd *cobra.Command, _ []string) error {
	cfg, log, err := c.load()
	if err != nil {
		return err
	}
	info, err := orchestrator.New(cfg, orchestrator.Deps{Log: log}).ContractInfo(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, info)
	return nil
}

func printReport(w io.Writer, r *dispatch.Report) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case dispatch.StatusSubmitted:
			fmt.Fprintf(w, "%-20s %-10s %s\n", o.Entry, o.Status, o.Result)
		case dispatch.StatusRejected:
			fmt.Fprintf(w, "%-20s %-10s %s\n", o.Entry, o.Status, o.Reason)
		case dispatch.StatusFailed:
			fmt.Fprintf(w, "%-20s %-10s %v\n", o.Entry, o.Status, o.Err)
		default:
			fmt.Fprintf(w, "%-20s %s\n", o.Entry, o.Status)
		}
	}
}
