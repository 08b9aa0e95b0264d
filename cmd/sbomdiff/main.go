// Command sbomdiff is a thin exerciser around the sbomdiff package: it
// loads two already-normalized SBOM documents from disk and prints the
// diff. It does no parsing of CycloneDX/SPDX, no enrichment, and no report
// rendering; callers feed it JSON-serialized model.NormalizedSbom values.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/quay/sbomdiff"
	"github.com/quay/sbomdiff/diffcache"
	"github.com/quay/sbomdiff/internal/diag"
	"github.com/quay/sbomdiff/model"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		oldPath     string
		newPath     string
		cacheSize   int
		dropVEX     bool
		noGraph     bool
		noVulns     bool
		fuzzyThresh float64
	)

	root := &cobra.Command{
		Use:   "sbomdiff",
		Short: "Diff two normalized SBOM documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			old, err := loadSbom(oldPath)
			if err != nil {
				return fmt.Errorf("loading old sbom: %w", err)
			}
			new, err := loadSbom(newPath)
			if err != nil {
				return fmt.Errorf("loading new sbom: %w", err)
			}

			cfg := model.DefaultConfig()
			cfg.DetectGraphChanges = !noGraph
			cfg.DetectVulnerabilityChanges = !noVulns
			if fuzzyThresh > 0 {
				cfg.FuzzyThreshold = fuzzyThresh
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid config: %w", err)
			}

			var cache *diffcache.Cache
			if cacheSize > 0 {
				cache, err = diffcache.New(cacheSize)
				if err != nil {
					return fmt.Errorf("building cache: %w", err)
				}
			}

			sink := diag.NewSlog(cmd.Context(), slog.Default())
			result, err := sbomdiff.DiffWithCache(cmd.Context(), old, new, cfg, cache, sink)
			if err != nil {
				return err
			}
			if dropVEX {
				result.FilterByVEX()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	root.Flags().StringVar(&oldPath, "old", "", "path to the old NormalizedSbom JSON document")
	root.Flags().StringVar(&newPath, "new", "", "path to the new NormalizedSbom JSON document")
	root.Flags().IntVar(&cacheSize, "cache-size", 0, "entries to keep in the incremental diff cache (0 disables it)")
	root.Flags().BoolVar(&dropVEX, "drop-vex-noise", false, "drop introduced vulnerabilities already marked not_affected or fixed by VEX")
	root.Flags().BoolVar(&noGraph, "no-graph", false, "skip dependency graph diffing")
	root.Flags().BoolVar(&noVulns, "no-vulns", false, "skip vulnerability diffing")
	root.Flags().Float64Var(&fuzzyThresh, "fuzzy-threshold", 0, "override the fuzzy match acceptance threshold")
	root.MarkFlagRequired("old")
	root.MarkFlagRequired("new")

	return root
}

func loadSbom(path string) (*model.NormalizedSbom, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var s model.NormalizedSbom
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}
