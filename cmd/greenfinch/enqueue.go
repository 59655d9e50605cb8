package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bft-labs/greenfinch/internal/adapters/fs"
	logAdapter "github.com/bft-labs/greenfinch/internal/adapters/log"
	"github.com/bft-labs/greenfinch/internal/cliconfig"
	"github.com/bft-labs/greenfinch/internal/domain"
	"github.com/bft-labs/greenfinch/internal/queue"
	"github.com/bft-labs/greenfinch/pkg/log"
)

func newEnqueueCmd(cfg *cliconfig.Config, cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "enqueue <category> [record-json]",
		Short: "Append records to a persisted queue",
		Long: strings.TrimSpace(`
Append one or more JSON records to the persisted queue of a category
(events, people or groups). Records are read from the second argument, or
from stdin as a stream of JSON objects when it is omitted. They are sent by
the next run of greenfinch.`),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := domain.ParseCategory(args[0])
			if err != nil {
				return err
			}
			if _, _, err := resolveConfig(cmd, cfg, *cfgPath); err != nil {
				return err
			}
			if err := cfg.DeriveQueueDir(); err != nil {
				return err
			}
			logger := logAdapter.New(logAdapter.Options{Format: cfg.LogFormat, Level: cfg.LogLevel})

			var in io.Reader = cmd.InOrStdin()
			if len(args) == 2 {
				in = strings.NewReader(args[1])
			}
			records, err := decodeRecords(in)
			if err != nil {
				return err
			}

			n, err := enqueue(cmd.Context(), *cfg, category, records, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %d %s records\n", n, category)
			return nil
		},
	}
}

// decodeRecords reads a stream of JSON objects.
func decodeRecords(r io.Reader) ([]domain.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var records []domain.Record
	for {
		var rec domain.Record
		err := dec.Decode(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode record %d: %w", len(records)+1, err)
		}
		if rec == nil {
			return nil, fmt.Errorf("decode record %d: not a JSON object", len(records)+1)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, errors.New("no records given")
	}
	return records, nil
}

func enqueue(ctx context.Context, cfg cliconfig.Config, category domain.Category, records []domain.Record, logger log.Logger) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := os.MkdirAll(cfg.QueueDir, 0o700); err != nil {
		return 0, fmt.Errorf("create queue dir: %w", err)
	}
	store := queue.NewStore(queue.Config{MaxSize: cfg.MaxQueueSize}, fs.NewQueueFileRepository(cfg.QueueDir), logger)
	if err := store.Load(ctx); err != nil {
		return 0, err
	}
	if err := store.AppendAll(category, records); err != nil {
		return 0, err
	}
	return len(records), nil
}
