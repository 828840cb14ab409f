package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"newsharvester/internal/metrics"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one harvest cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			stats := a.pipe.RunCycle(ctx)
			for portal, st := range stats {
				fmt.Printf("%-20s total=%d saved=%d skipped=%d\n",
					portal, st.Total, st.Saved, st.Skipped)
			}
			return nil
		},
	}
}

func newLoopCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "loop",
		Short: "Harvest continuously on an interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx, cancel := signalContext()
			defer cancel()

			if addr := a.cfg.Metrics.Addr; addr != "" {
				srv, errCh := metrics.Serve(addr)
				defer srv.Close()
				go func() {
					if err := <-errCh; err != nil {
						a.logger.Error("metrics server failed", zap.Error(err))
					}
				}()
			}

			return a.pipe.RunLoop(ctx, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 30*time.Minute, "time between harvest cycles")
	return cmd
}
