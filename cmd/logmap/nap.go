package main

import (
	"time"

	"github.com/spf13/cobra"
)

func newNapCmd(a *app) *cobra.Command {
	var (
		upTo  time.Duration
		times int
	)
	cmd := &cobra.Command{
		Use:   "nap",
		Short: "Sleep for random short durations, logging each one",
		RunE: func(cmd *cobra.Command, _ []string) (err error) {
			s := a.lg.Begin("napping")
			defer func() { err = s.End(err) }()
			for range times {
				if _, err := a.lg.NapUpTo(cmd.Context(), upTo); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&upTo, "up-to", time.Second, "longest nap")
	cmd.Flags().IntVarP(&times, "times", "t", 1, "number of naps")
	return cmd
}
