package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/jasonbaker/agentm"
	"github.com/jasonbaker/agentm/internal/config"
	"github.com/jasonbaker/agentm/internal/logger"
	"github.com/jasonbaker/agentm/store"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type app struct {
	in  io.Reader
	out io.Writer

	configPath string
	dbPath     string
	verbose    bool
	stringIDs  bool
}

func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	a := &app{in: in, out: out}

	root := &cobra.Command{
		Use:   "agentm",
		Short: "Inspect and edit agentm store files",
		Long: `agentm reads and writes the Bolt files behind an agentm store.

Configuration comes from agentm.toml (found by walking up from the working
directory, or given with --config) and AGENTM_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default: nearest agentm.toml)")
	pf.StringVar(&a.dbPath, "db", "", "store file, overrides db.path")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log store operations")

	root.AddCommand(
		a.collectionsCmd(),
		a.getCmd(),
		a.putCmd(),
		a.deleteCmd(),
		a.dumpCmd(),
		a.statsCmd(),
	)
	return root
}

func (a *app) withStore(f func(st *store.Store, log *zap.Logger) error) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DB.Path = a.dbPath
	}
	if a.verbose {
		cfg.Log.Verbose = true
	}

	var log *zap.Logger
	if cfg.Log.Development {
		log, err = logger.New(cfg.Log)
		if err != nil {
			return errors.Wrap(err, "logger")
		}
	} else {
		log = logger.NewConsole(cfg.Log.Verbose)
	}
	defer log.Sync()

	st, err := store.Open(cfg.DB.Path, cfg.StoreOptions(log))
	if err != nil {
		return err
	}
	defer st.Close()
	st.AddOutgoing(agentm.NewTypedOutgoing(nil, agentm.WithLogger(log)))
	return f(st, log)
}

func (a *app) parseID(s string) any {
	if a.stringIDs {
		return s
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}

func (a *app) collectionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collections",
		Short: "List collections and their record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st *store.Store, _ *zap.Logger) error {
				data := pterm.TableData{{"Collection", "Records"}}
				err := st.Read(func(tx *store.Tx) error {
					colls, err := tx.Collections()
					if err != nil {
						return err
					}
					for _, coll := range colls {
						data = append(data, []string{coll, strconv.Itoa(tx.Count(coll))})
					}
					return nil
				})
				if err != nil {
					return err
				}
				return a.renderTable(data)
			})
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Print a record as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st *store.Store, _ *zap.Logger) error {
				v, err := st.Find(args[0], a.parseID(args[1]))
				if err != nil {
					return err
				}
				data, err := json.Marshal(v)
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, string(data))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&a.stringIDs, "string-id", false, "treat numeric ids as strings")
	return cmd
}

func (a *app) putCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <collection> [file]",
		Short: "Store YAML or JSON documents read from a file or stdin",
		Long: `Store every YAML or JSON document from the input into the collection.
Documents without an _id get a generated one; the ids are printed in order.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := a.in
			if len(args) == 2 && args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			recs, err := readRecords(r)
			if err != nil {
				return err
			}
			return a.withStore(func(st *store.Store, log *zap.Logger) error {
				var ids []any
				err := st.Update(func(tx *store.Tx) error {
					for _, rec := range recs {
						id, err := tx.Put(args[0], rec)
						if err != nil {
							return err
						}
						ids = append(ids, id)
					}
					return nil
				})
				if err != nil {
					return err
				}
				log.Debug("put", zap.String("collection", args[0]), zap.Int("records", len(ids)))
				for _, id := range ids {
					fmt.Fprintln(a.out, id)
				}
				return nil
			})
		},
	}
}

func readRecords(r io.Reader) ([]*agentm.Record, error) {
	dec := yaml.NewDecoder(r)
	var recs []*agentm.Record
	for {
		rec := agentm.NewRecord()
		err := dec.Decode(rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "document %d", len(recs)+1)
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return nil, errors.New("no documents in input")
	}
	return recs, nil
}

func (a *app) deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Remove a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st *store.Store, _ *zap.Logger) error {
				return st.Remove(args[0], a.parseID(args[1]))
			})
		},
	}
	cmd.Flags().BoolVar(&a.stringIDs, "string-id", false, "treat numeric ids as strings")
	return cmd
}

func (a *app) dumpCmd() *cobra.Command {
	var withStats bool
	cmd := &cobra.Command{
		Use:   "dump [collection...]",
		Short: "Print raw records of all or the given collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := store.DumpHeaders | store.DumpRecords
			if withStats {
				flags |= store.DumpStats
			}
			return a.withStore(func(st *store.Store, _ *zap.Logger) error {
				return st.Read(func(tx *store.Tx) error {
					return tx.Dump(a.out, flags, args...)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&withStats, "stats", false, "include per-collection storage stats")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show storage statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st *store.Store, _ *zap.Logger) error {
				data := pterm.TableData{{"Collection", "Records", "Data size", "Allocated"}}
				var size int64
				err := st.Read(func(tx *store.Tx) error {
					colls, err := tx.Collections()
					if err != nil {
						return err
					}
					for _, coll := range colls {
						s := tx.Stats(coll)
						data = append(data, []string{
							coll,
							strconv.Itoa(s.Records),
							strconv.FormatInt(s.DataSize, 10),
							strconv.FormatInt(s.DataAlloc, 10),
						})
					}
					size = tx.Size()
					return nil
				})
				if err != nil {
					return err
				}
				if err := a.renderTable(data); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "file size: %d bytes\n", size)
				return nil
			})
		},
	}
}

func (a *app) renderTable(data pterm.TableData) error {
	s, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, s)
	return nil
}
