package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/kjk/common/log"
	"github.com/spf13/cobra"

	"github.com/0xRadioAc7iv/go-kvlog/client"
	"github.com/0xRadioAc7iv/go-kvlog/core"
	"github.com/0xRadioAc7iv/go-kvlog/internal/protocol"
	"github.com/0xRadioAc7iv/go-kvlog/internal/server"
	"github.com/0xRadioAc7iv/go-kvlog/internal/utils"
)

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the store over TCP until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := utils.ContextWithInterrupt(cmd.Context())
			defer stop()

			return a.withStore(func(s *core.Store) error {
				ln, err := server.Listen(a.cfg.Host, a.cfg.Port)
				if err != nil {
					return err
				}

				log.Logf("kvs: serving %s on %s (%d keys)\n", s.Dir(), ln.Addr(), s.Len())
				err = server.Serve(ctx, ln, server.NewHandler(s))
				log.Logf("kvs: server stopped\n")
				return err
			})
		},
	}
	addServerFlags(cmd)
	return cmd
}

func (a *app) shellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Open an interactive session with a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.Connect(client.WithHost(a.cfg.Host), client.WithPort(a.cfg.Port))
			if err != nil {
				return err
			}
			defer c.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Connected to %s\n", a.cfg.Addr())
			fmt.Fprintln(out, "Type commands. 'help' for information or 'exit' to quit.")
			return runShell(c, cmd.InOrStdin(), out)
		},
	}
	addServerFlags(cmd)
	return cmd
}

// runShell reads command lines from in until EOF or "exit". Words are split
// with shell quoting rules, so `set city "new york"` sets one value.
func runShell(c *client.Client, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), protocol.MaxPayloadSize)

	for {
		fmt.Fprint(out, "> ")

		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		name, key, value, err := utils.SplitCommandLine(line)
		if err != nil {
			fmt.Fprintln(out, "parse error:", err)
			continue
		}
		if name == "exit" || name == "quit" {
			return nil
		}

		resp, err := c.Execute(name, key, value)
		if err != nil {
			return err
		}
		printResponse(out, resp)
	}
}

func printResponse(out io.Writer, resp *protocol.Response) {
	switch resp.Status {
	case protocol.StatusOK:
		fmt.Fprintln(out, resp.Body)
	case protocol.StatusNotFound:
		if resp.Body == "" {
			fmt.Fprintln(out, msgKeyNotFound)
			return
		}
		fmt.Fprintln(out, resp.Body)
	default:
		fmt.Fprintln(out, "error:", resp.Body)
	}
}
