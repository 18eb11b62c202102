package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jengzang/moodmap-backend-go/internal/models"
	"github.com/jengzang/moodmap-backend-go/internal/render"
)

type clusterRow struct {
	ClusterID int     `json:"clusterId,omitempty"`
	Count     int     `json:"count"`
	Mood      int     `json:"mood"`
	Lng       float64 `json:"lng"`
	Lat       float64 `json:"lat"`
	Label     string  `json:"label,omitempty"`
}

// newClustersCommand prints the clusters a seeded store produces at one zoom
func newClustersCommand() *cobra.Command {
	var (
		seed  string
		count int
		zoom  float64
		bbox  string
	)
	cmd := &cobra.Command{
		Use:   "clusters",
		Short: "Seed the store and print the clusters at a zoom level",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if _, err := a.moods.Seed(seed, count); err != nil {
				return err
			}
			if _, err := a.maps.Start(cmd.Context()); err != nil {
				return err
			}
			features, err := a.maps.Clusters(bbox, zoom)
			if err != nil {
				return err
			}

			rows := make([]clusterRow, 0, len(features))
			for _, f := range features {
				rows = append(rows, toRow(f))
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rows)
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "cities", "seed mode (none, cities, random)")
	cmd.Flags().IntVar(&count, "count", 500, "observations for the random seed")
	cmd.Flags().Float64Var(&zoom, "zoom", 2, "zoom level")
	cmd.Flags().StringVar(&bbox, "bbox", "", "west,south,east,north; empty for the whole world")
	return cmd
}

func toRow(f models.Feature) clusterRow {
	row := clusterRow{Lng: f.Geometry.Coordinates.Lng(), Lat: f.Geometry.Coordinates.Lat(), Count: 1}
	if !f.IsCluster() {
		row.Mood, _ = f.IntProp(models.PropMood)
		return row
	}
	row.ClusterID, _ = f.IntProp(models.PropClusterID)
	row.Count, _ = f.IntProp(models.PropPointCount)
	sum, _ := f.FloatProp(models.PropSum)
	n, _ := f.FloatProp(models.PropCount)
	row.Mood = render.AverageMood(sum, n)
	row.Label = fmt.Sprintf("%d (%d)", row.Mood, row.Count)
	return row
}
