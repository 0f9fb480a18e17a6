// Package cli implements the kvs command line.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kjk/common/log"
	"github.com/spf13/cobra"

	"github.com/0xRadioAc7iv/go-kvlog/core"
	"github.com/0xRadioAc7iv/go-kvlog/internal/config"
)

// Exit statuses.
const (
	ExitOK       = 0
	ExitNotFound = 1
	ExitError    = 2
)

const flagConfig = "config"

// exitError makes a command finish with a specific status. A nil err means
// the command already printed everything it had to say.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

type app struct {
	cfgFile string
	cfg     *config.Config
}

// Execute runs kvs with the process arguments and returns the exit status.
func Execute() int {
	return Run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

// Run executes one kvs invocation against the given streams.
func Run(args []string, in io.Reader, out, errOut io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.Execute()
	if err == nil {
		return ExitOK
	}

	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			fmt.Fprintf(errOut, "error: %v\n", ee.err)
		}
		return ee.code
	}

	fmt.Fprintf(errOut, "error: %v\n", err)
	return ExitError
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "kvs",
		Short:         "Durable key-value store on an append-only log",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.New(), a.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			a.cfg = cfg
			log.Verbose = cfg.Verbose
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, flagConfig, "", "config file (default: kvs.yaml in the working directory)")
	flags.String(config.KeyDir, config.DefaultDir, "store directory")
	flags.BoolP(config.KeyVerbose, "v", false, "log replay and compaction details")
	flags.Int64(config.KeyCompactThreshold, config.DefaultCompactThreshold, "stale bytes that trigger compaction, 0 disables")

	cmd.AddCommand(
		a.setCmd(),
		a.getCmd(),
		a.rmCmd(),
		a.compactCmd(),
		a.dumpCmd(),
		a.serveCmd(),
		a.shellCmd(),
	)
	return cmd
}

func (a *app) openStore() (*core.Store, error) {
	return core.Open(a.cfg.Dir, core.WithCompactThreshold(a.cfg.CompactThreshold))
}

// withStore opens the store, runs fn and closes the store, reporting the
// first error.
func (a *app) withStore(fn func(s *core.Store) error) (err error) {
	s, err := a.openStore()
	if err != nil {
		return err
	}
	defer func() {
		if errClose := s.Close(); err == nil {
			err = errClose
		}
	}()
	return fn(s)
}

// addServerFlags adds --host and --port, which only the network commands use.
func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().String(config.KeyHost, config.DefaultHost, "server host")
	cmd.Flags().Int(config.KeyPort, config.DefaultPort, "server port")
}
