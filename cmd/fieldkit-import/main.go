package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/irrigo/fieldkit/internal/core/domain"
	"github.com/irrigo/fieldkit/internal/core/usecases"
	"github.com/irrigo/fieldkit/internal/pkg/geospatial"
	"github.com/irrigo/fieldkit/internal/pkg/logging"
)

const (
	sortFlag    = "sort"
	geojsonFlag = "geojson"
	parentFlag  = "parent"
	maxRowsFlag = "max-rows"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fieldkit-import FILE",
		Short: "Read boundary coordinates from a CSV or XLSX file",
		Long: `Reads lat/lng rows from a .csv, .txt or .xlsx file, drops invalid
coordinates, and prints the resulting ring with its area in hectares.

With --parent, every vertex is checked against the boundary in that file
(GeoJSON, CSV or XLSX) and the command fails if any lies outside.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args[0], cmd.OutOrStdout())
		},
	}

	cmd.Flags().Bool(sortFlag, false, "order points counter-clockwise around their centroid")
	cmd.Flags().Bool(geojsonFlag, false, "print a GeoJSON Feature instead of the import report")
	cmd.Flags().String(parentFlag, "", "boundary file the imported ring must lie inside")
	cmd.Flags().Int(maxRowsFlag, 5000, "maximum number of data rows")
	return cmd
}

func main() {
	logging.Setup("fieldkit-import", os.Getenv("FIELDKIT_LOG_LEVEL"), "text")

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// report is printed when --geojson is not set.
type report struct {
	*domain.ImportResult
	OutsidePoints []int `json:"outside_points,omitempty"`
}

func run(cmd *cobra.Command, path string, out io.Writer) error {
	sortPoints, _ := cmd.Flags().GetBool(sortFlag)
	asGeoJSON, _ := cmd.Flags().GetBool(geojsonFlag)
	parentPath, _ := cmd.Flags().GetString(parentFlag)
	maxRows, _ := cmd.Flags().GetInt(maxRowsFlag)

	imports := usecases.NewImportService(maxRows)

	res, err := parseFile(imports, path, sortPoints)
	if err != nil {
		return err
	}

	var outside []int
	if parentPath != "" {
		parent, err := loadParent(imports, parentPath)
		if err != nil {
			return fmt.Errorf("parent %s: %w", parentPath, err)
		}
		if !domain.BoundaryRing(parent).Complete() {
			return fmt.Errorf("parent %s: %w", parentPath, domain.ErrIncompleteRing)
		}
		outside = geospatial.ContainsAll(res.Points, parent)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if asGeoJSON {
		err = enc.Encode(geospatial.ToFeature(res.Points, map[string]any{
			"area_hectares": res.AreaHectares,
			"source":        filepath.Base(path),
		}))
	} else {
		err = enc.Encode(report{ImportResult: res, OutsidePoints: outside})
	}
	if err != nil {
		return err
	}

	if len(outside) > 0 {
		return &domain.OutOfBoundsError{Indexes: outside}
	}
	return nil
}

func parseFile(imports *usecases.ImportService, path string, sortPoints bool) (*domain.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return imports.Parse(filepath.Base(path), f, sortPoints)
}

// loadParent reads a boundary from GeoJSON, or from a spreadsheet in the
// same format as the imported file.
func loadParent(imports *usecases.ImportService, path string) ([]domain.GeoPoint, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".geojson", ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return geospatial.FromGeoJSON(data)
	default:
		res, err := parseFile(imports, path, false)
		if err != nil {
			return nil, err
		}
		return res.Points, nil
	}
}
