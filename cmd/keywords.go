package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"newsharvester/internal/pipeline"
)

func newKeywordsCmd() *cobra.Command {
	var lang, country string
	cmd := &cobra.Command{
		Use:   "keywords <comma,separated,keywords>",
		Short: "Scan feeds for keyword matches and store them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			n, err := a.pipe.FetchByKeywords(ctx, pipeline.KeywordFilter{
				Keywords: pipeline.NormalizeKeywords(args[0]),
				Language: lang,
				Country:  country,
			})
			if err != nil {
				return err
			}
			fmt.Printf("stored %d matching articles\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", "", "restrict to portals in this language")
	cmd.Flags().StringVar(&country, "country", "", "restrict to portals for this country")
	return cmd
}

func newBackfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill-topics",
		Short: "Classify stored articles that have no topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			n, err := a.pipe.BackfillTopics(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("labeled %d articles\n", n)
			return nil
		},
	}
}
