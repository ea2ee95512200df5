package main

import (
	"github.com/spf13/cobra"

	"github.com/baxromumarov/logmap"
)

var allLevels = []logmap.Level{
	logmap.LevelTrace,
	logmap.LevelDebug,
	logmap.LevelInfo,
	logmap.LevelWarning,
	logmap.LevelError,
}

func newLevelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "levels",
		Short: "Print one line at every level, inside a scope",
		RunE: func(*cobra.Command, []string) error {
			s := a.lg.Begin("levels", logmap.AtLevel(logmap.LevelInfo))
			for _, level := range allLevels {
				a.lg.Log(level, "this is "+level.String())
			}
			return s.End(nil)
		},
	}
}
