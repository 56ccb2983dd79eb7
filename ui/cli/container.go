// Copyright (c) 2026 SeisIO
// shakelib - ShakeMap ground-motion data library
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/seisio/shakelib/internal/container"
	"github.com/seisio/shakelib/internal/i18n"
	"github.com/seisio/shakelib/internal/logging"
	"github.com/seisio/shakelib/internal/rupture"
)

// ruptureFileNames are the file names probed inside an event directory,
// in order of preference.
var ruptureFileNames = []string{"rupture.json", "fault.txt"}

// findEventInputs locates the event.xml, optional rupture file and data
// files of a ShakeMap event directory.
func findEventInputs(dir string) (eventPath, rupturePath string, dataFiles []string, err error) {
	eventPath = filepath.Join(dir, "event.xml")
	if _, err := os.Stat(eventPath); err != nil {
		return "", "", nil, errors.New(i18n.T("assemble.error_event", err))
	}

	for _, name := range ruptureFileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			rupturePath = p
			break
		}
	}
	if rupturePath == "" {
		// Legacy layouts name the text file after the fault.
		matches, _ := filepath.Glob(filepath.Join(dir, "*_fault.txt"))
		if len(matches) > 0 {
			sort.Strings(matches)
			rupturePath = matches[0]
		}
	}

	dataFiles, err = filepath.Glob(filepath.Join(dir, "*_dat.xml"))
	if err != nil {
		return "", "", nil, err
	}
	sort.Strings(dataFiles)
	return eventPath, rupturePath, dataFiles, nil
}

var assembleCmd = &cobra.Command{
	Use:   "assemble <event-dir> <container-file>",
	Short: "Build an input container from an event directory",
	Long: `Assemble collects event.xml, the rupture file (rupture.json or
fault.txt) and all *_dat.xml observation files from the event directory
and writes them into a single input container.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eventDir, outPath := args[0], args[1]

		eventPath, rupturePath, dataFiles, err := findEventInputs(eventDir)
		if err != nil {
			return err
		}
		logging.Debugf("assembling %s: rupture=%q, %d data file(s)",
			eventDir, rupturePath, len(dataFiles))

		originator, _ := cmd.Flags().GetString("originator")
		comment, _ := cmd.Flags().GetString("comment")
		history := &container.VersionHistory{Versions: []container.Version{{
			Version:    1,
			Time:       time.Now().UTC().Format(time.RFC3339),
			Originator: originator,
			Comment:    comment,
		}}}

		runConfig := map[string]any{
			"gmpe_set": appConfig.GmpeSet,
			"rupture":  map[string]any{"mesh_dx": appConfig.Rupture.MeshDx},
		}

		ic, err := container.CreateInput(outPath, runConfig, eventPath, rupturePath, dataFiles, history)
		if err != nil {
			return err
		}
		defer ic.Close()

		fmt.Println(i18n.T("assemble.success", outPath))
		return nil
	},
}

var augmentCmd = &cobra.Command{
	Use:   "augment <container-file> <data-file>...",
	Short: "Merge additional observation files into an input container",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, files := args[0], args[1:]

		ic, err := container.OpenInput(path)
		if err != nil {
			return err
		}
		defer ic.Close()

		if err := ic.AddStationData(files...); err != nil {
			return errors.New(i18n.T("assemble.error_data", files[0], err))
		}

		history, err := ic.VersionHistory()
		if err != nil {
			return err
		}
		history.Versions = append(history.Versions, container.Version{
			Version: len(history.Versions) + 1,
			Time:    time.Now().UTC().Format(time.RFC3339),
			Comment: fmt.Sprintf("augmented with %d data file(s)", len(files)),
		})
		if err := ic.SetVersionHistory(history); err != nil {
			return err
		}

		fmt.Println(i18n.T("augment.success", len(files), path))
		return nil
	},
}

var contentsCmd = &cobra.Command{
	Use:   "contents <container-file>",
	Short: "Summarize the contents of an input container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ic, err := container.OpenInput(args[0])
		if err != nil {
			return err
		}
		defer ic.Close()

		fmt.Println(i18n.T("contents.header"))

		origin, err := ic.Origin()
		if err != nil {
			return err
		}
		fmt.Println(i18n.T("contents.origin", fmt.Sprintf("%s M%.1f %s (%.4f, %.4f) depth %.1f km",
			origin.EventID, origin.Mag, origin.LocString, origin.Lat, origin.Lon, origin.Depth)))

		r, err := ic.Rupture(appConfig.Rupture.MeshDx)
		if err != nil {
			return err
		}
		fmt.Println(i18n.T("contents.rupture", describeRupture(r)))

		nInst, nMacro := 0, 0
		if ic.HasStationData() {
			list, err := ic.StationList()
			if err != nil {
				return err
			}
			defer list.Close()
			if t, err := list.Table(true); err == nil {
				nInst = len(t.Stations)
			}
			if t, err := list.Table(false); err == nil {
				nMacro = len(t.Stations)
			}
		}
		fmt.Println(i18n.T("contents.stations", nInst, nMacro))

		history, err := ic.VersionHistory()
		if err != nil {
			return err
		}
		for _, v := range history.Versions {
			fmt.Printf("  v%d %s %s %s\n", v.Version, v.Time, v.Originator, v.Comment)
		}
		return nil
	},
}

// describeRupture renders a one-line summary of a rupture for display.
func describeRupture(r rupture.Rupture) string {
	switch q := r.(type) {
	case *rupture.QuadRupture:
		return fmt.Sprintf("quadrilateral, %d segment(s), length %.1f km", len(q.Quadrilaterals()), q.Length())
	case *rupture.EdgeRupture:
		return fmt.Sprintf("edge, length %.1f km", q.Length())
	case *rupture.PointRupture:
		return "point source"
	default:
		return fmt.Sprintf("%T", r)
	}
}
