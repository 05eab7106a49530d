package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/insightdelivered/statement-ledger/internal/config"
	"github.com/insightdelivered/statement-ledger/internal/store"
)

func newHistoryCommand(load configLoader) *cobra.Command {
	var user, id string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored conversions for a user, or print one as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			var convID uuid.UUID
			if id != "" {
				if convID, err = uuid.Parse(id); err != nil {
					return fmt.Errorf("invalid --id: %w", err)
				}
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			return runHistory(cmd, cfg, userID, convID)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user id (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&id, "id", "", "print the CSV of this conversion")

	return cmd
}

func runHistory(cmd *cobra.Command, cfg *config.Config, userID, convID uuid.UUID) error {
	if cfg.Storage.Path == "" {
		return errors.New("conversion history is disabled: storage.path is empty")
	}
	s, err := store.OpenBolt(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	if convID != uuid.Nil {
		conv, err := s.Get(cmd.Context(), userID, convID)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, conv.CSV)
		return err
	}

	list, err := s.List(cmd.Context(), userID)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(out, "No conversions.")
		return nil
	}
	for _, c := range list {
		color.New(color.BgBlue, color.FgWhite).Fprintf(out, " %s ", c.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Fprintf(out, " %s  %-30s %4d txns", c.ID, c.Filename, c.TransactionCount)
		if c.UsedSampleData {
			color.New(color.FgYellow).Fprint(out, "  sample")
		}
		fmt.Fprintln(out)
	}
	return nil
}
