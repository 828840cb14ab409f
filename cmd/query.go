package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"newsharvester/internal/store"
)

func newSearchCmd() *cobra.Command {
	var strategy string
	var limit int
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search over stored articles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newStoreApp()
			if err != nil {
				return err
			}
			defer a.close()

			arts, err := a.store.Search(args[0], store.ParseStrategy(strategy),
				a.cfg.Search.NearDistance, limit)
			if err != nil {
				return err
			}
			printArticles(arts)
			return nil
		},
	}
	cmd.Flags().StringVar(&strategy, "strategy", "auto", "auto, all, any, phrase, or near")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")
	return cmd
}

func newLatestCmd() *cobra.Command {
	var topic, portal string
	var limit int
	cmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the newest stored articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newStoreApp()
			if err != nil {
				return err
			}
			defer a.close()

			var arts []store.Article
			if topic != "" {
				var p *string
				if portal != "" {
					p = &portal
				}
				arts, err = a.store.GetLatestByTopic(topic, p, limit)
			} else {
				arts, err = a.store.GetLatest(limit)
			}
			if err != nil {
				return err
			}
			printArticles(arts)
			return nil
		},
	}
	cmd.Flags().StringVar(&topic, "topic", "", "filter by topic label")
	cmd.Flags().StringVar(&portal, "portal", "", "filter by portal (with --topic)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show stored article counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newStoreApp()
			if err != nil {
				return err
			}
			defer a.close()

			total, err := a.store.Count()
			if err != nil {
				return err
			}
			byPortal, err := a.store.CountByPortal()
			if err != nil {
				return err
			}
			fmt.Printf("total articles: %d\n", total)
			for portal, n := range byPortal {
				fmt.Printf("  %-20s %d\n", portal, n)
			}
			return nil
		},
	}
}
