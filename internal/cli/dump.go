package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"github.com/0xRadioAc7iv/go-kvlog/core"
	"github.com/0xRadioAc7iv/go-kvlog/internal/record"
)

// dumpRecord is the JSON shape of one log record. Keys and values that are
// valid UTF-8 are written as strings; anything else goes to the _b64 field
// so binary data survives the dump unchanged.
type dumpRecord struct {
	Offset    int64   `json:"offset"`
	Op        string  `json:"op"`
	Timestamp int64   `json:"ts"`
	Key       *string `json:"key,omitempty"`
	KeyB64    []byte  `json:"key_b64,omitempty"`
	Value     *string `json:"value,omitempty"`
	ValueB64  []byte  `json:"value_b64,omitempty"`
}

type dumpOptions struct {
	indent bool
	color  bool
}

func (a *app) dumpCmd() *cobra.Command {
	var opts dumpOptions

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print every record in the log as one JSON object per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(a.cfg.Dir, core.LogFileName)
			if _, err := os.Stat(path); err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}

			l, err := core.OpenLog(a.cfg.Dir)
			if err != nil {
				return err
			}
			defer l.Close()

			return dumpLog(cmd.OutOrStdout(), cmd.ErrOrStderr(), l, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.indent, "pretty", false, "indent each record")
	cmd.Flags().BoolVar(&opts.color, "color", false, "colorize the output for a terminal")
	return cmd
}

// dumpLog writes the records of l to w. A torn final record is reported on
// errOut and ends the dump without an error, the same way Open would treat it.
func dumpLog(w, errOut io.Writer, l *core.Log, opts dumpOptions) error {
	lr := l.NewReader()
	for {
		offset := lr.Offset()

		rec, err := lr.Next()
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, core.ErrTornTail) {
			fmt.Fprintf(errOut, "torn record at offset %d, %d bytes ignored\n", offset, l.Size()-offset)
			return nil
		}
		if err != nil {
			return err
		}

		b, err := json.Marshal(toDumpRecord(offset, rec))
		if err != nil {
			return err
		}
		if opts.indent {
			b = pretty.Pretty(b)
		} else {
			b = append(b, '\n')
		}
		if opts.color {
			b = pretty.Color(b, nil)
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
}

func toDumpRecord(offset int64, rec record.Record) dumpRecord {
	d := dumpRecord{
		Offset:    offset,
		Op:        rec.Kind.String(),
		Timestamp: rec.Timestamp,
	}
	d.Key, d.KeyB64 = textOrBinary(rec.Key)
	if rec.Kind == record.KindSet {
		d.Value, d.ValueB64 = textOrBinary(rec.Value)
	}
	return d
}

// textOrBinary returns b as a string when it is valid UTF-8 and as raw bytes
// otherwise. Exactly one of the results is set.
func textOrBinary(b []byte) (*string, []byte) {
	if utf8.Valid(b) {
		s := string(b)
		return &s, nil
	}
	return nil, b
}
