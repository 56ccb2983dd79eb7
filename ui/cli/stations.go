// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/seisio/shakelib/internal/container"
	"github.com/seisio/shakelib/internal/i18n"
	"github.com/seisio/shakelib/internal/station"
	"github.com/seisio/shakelib/ui/tui"
)

var stationsCmd = &cobra.Command{
	Use:   "stations <container-file>",
	Short: "List the observations stored in an input container",
	Long: `Display the station table of an input container: station identity,
location and the peak amplitude per intensity measure. With --tui the
table opens in an interactive, filterable browser.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		useTui, _ := cmd.Flags().GetBool("tui")
		macroseismic, _ := cmd.Flags().GetBool("macroseismic")

		ic, err := container.OpenInput(args[0])
		if err != nil {
			return errors.New(i18n.T("stations.error_open", err))
		}
		defer ic.Close()

		if !ic.HasStationData() {
			fmt.Println(i18n.T("stations.count", 0))
			return nil
		}
		list, err := ic.StationList()
		if err != nil {
			return errors.New(i18n.T("stations.error_open", err))
		}
		defer list.Close()

		table, err := list.Table(!macroseismic)
		if err != nil {
			return err
		}

		if useTui {
			return tui.RunStations(table)
		}
		printStationTable(table)
		return nil
	},
}

// printStationTable renders a station table with aligned columns.
func printStationTable(t *station.Table) {
	fmt.Println(i18n.T("stations.header"))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	header := "ID\tNAME\tLAT\tLON"
	for _, imtName := range t.IMTs {
		header += "\t" + imtName
	}
	fmt.Fprintln(w, header)
	for i, sta := range t.Stations {
		row := fmt.Sprintf("%s\t%s\t%.4f\t%.4f", sta.ID, sta.Name, sta.Lat, sta.Lon)
		for _, imtName := range t.IMTs {
			row += "\t" + formatAmp(t.Values[imtName][i])
		}
		fmt.Fprintln(w, row)
	}
	w.Flush()

	fmt.Println(i18n.T("stations.count", len(t.Stations)))
}

// formatAmp renders one amplitude cell, blank for missing values.
func formatAmp(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%.4f", v)
}

var maintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Run maintenance (VACUUM/OPTIMIZE) on the configured station database",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbType := appConfig.Database.Type
		dsn := appConfig.Database.Dsn

		fmt.Println(i18n.T("maintenance.running", dbType))
		if err := station.RunMaintenance(dbType, dsn); err != nil {
			return errors.New(i18n.T("maintenance.error", err))
		}
		fmt.Println(i18n.T("maintenance.done"))
		return nil
	},
}
