package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0xRadioAc7iv/go-kvlog/core"
)

const msgKeyNotFound = "Key not found"

func (a *app) setCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set the value of a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *core.Store) error {
				return s.Set([]byte(args[0]), []byte(args[1]))
			})
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY",
		Short: "Print the value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *core.Store) error {
				value, ok := s.Get([]byte(args[0]))
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), msgKeyNotFound)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(value))
				return nil
			})
		},
	}
}

func (a *app) rmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm KEY",
		Short: "Remove a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *core.Store) error {
				err := s.Remove([]byte(args[0]))
				if errors.Is(err, core.ErrKeyNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), msgKeyNotFound)
					return &exitError{code: ExitNotFound}
				}
				return err
			})
		},
	}
}

func (a *app) compactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compact",
		Short: "Rewrite the log keeping only live keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *core.Store) error {
				before := s.Stats()
				if err := s.Compact(); err != nil {
					return err
				}
				after := s.Stats()
				fmt.Fprintf(cmd.OutOrStdout(), "compacted %d -> %d bytes (%d keys)\n", before.LogBytes, after.LogBytes, after.Keys)
				return nil
			})
		},
	}
}
