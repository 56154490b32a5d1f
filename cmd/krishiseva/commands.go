package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/avvvet/krishiseva/internal/knowledge"
	"github.com/avvvet/krishiseva/internal/models"
	"github.com/spf13/cobra"
)

func (c *cli) askCmd() *cobra.Command {
	var (
		userID   string
		language string
	)
	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: "Ask one question and print the JSON response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			resp := a.Handler.Ask(cmd.Context(), models.AskRequest{
				UserID:            userID,
				Message:           strings.Join(args, " "),
				PreferredLanguage: language,
			})
			return c.printJSON(resp)
		},
	}
	cmd.Flags().StringVarP(&userID, "user", "u", "cli-farmer", "user id the session is stored under")
	cmd.Flags().StringVarP(&language, "lang", "l", "", "preferred response language (en or ml)")
	return cmd
}

func (c *cli) seedCmd() *cobra.Command {
	var (
		force       bool
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Embed the built-in agricultural corpus into the vector index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if a.Embedder == nil {
				return errors.New("seeding needs EMBEDDING_API_KEY")
			}
			if a.Index == nil {
				return fmt.Errorf("vector backend %q is not available", a.Config.VectorBackend)
			}

			n, err := knowledge.Seed(cmd.Context(), a.Embedder, a.Index, knowledge.Corpus(), knowledge.SeedOptions{
				Concurrency: concurrency,
				Force:       force,
				Logger:      c.logger.WithPrefix("seed"),
			})
			if err != nil {
				return err
			}
			total, err := a.Index.Count(cmd.Context())
			if err != nil {
				return err
			}
			c.logger.Info("✅ Knowledge index ready", "written", n, "documents", total)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "re-embed even when the index already holds documents")
	cmd.Flags().IntVar(&concurrency, "concurrency", knowledge.DefaultSeedConcurrency, "parallel embedding calls")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var (
		limit int
		reset bool
	)
	cmd := &cobra.Command{
		Use:   "history <user-id>",
		Short: "Print a user's conversation summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if reset {
				if err := a.Handler.Clear(cmd.Context(), args[0]); err != nil {
					return err
				}
				c.logger.Info("🧹 Session cleared", "user", args[0])
				return nil
			}

			summary, err := a.Handler.Summary(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return c.printJSON(summary)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "history entries to read")
	cmd.Flags().BoolVar(&reset, "clear", false, "delete the user's session and history instead")
	return cmd
}
