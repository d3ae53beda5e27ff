package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/odvcencio/padfs/pkg/image"
)

// packRule selects treatment for paths matching a glob pattern. Later
// rules win over earlier ones.
type packRule struct {
	Pattern     string `toml:"pattern"`
	Compression string `toml:"compression"`
	Gzip        bool   `toml:"gzip"`
	Cache       bool   `toml:"cache"`
	Discard     bool   `toml:"discard"`
}

type packConfig struct {
	Defaults   packRule `toml:"defaults"`
	Heatshrink struct {
		WindowBits    uint8 `toml:"window_bits"`
		LookaheadBits uint8 `toml:"lookahead_bits"`
	} `toml:"heatshrink"`
	Rules []packRule `toml:"rule"`
}

func loadPackConfig(path string) (*packConfig, error) {
	cfg := &packConfig{}
	cfg.Defaults.Compression = "heatshrink"
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// ruleFor resolves the effective rule for a relative path: defaults
// overridden by the last matching pattern.
func (c *packConfig) ruleFor(rel string) (packRule, error) {
	effective := c.Defaults
	for _, r := range c.Rules {
		ok, err := filepath.Match(r.Pattern, rel)
		if err != nil {
			return packRule{}, fmt.Errorf("pattern %q: %w", r.Pattern, err)
		}
		if !ok {
			// Also try matching against the base name, so "*.html"
			// applies at any depth.
			ok, err = filepath.Match(r.Pattern, filepath.Base(rel))
			if err != nil {
				return packRule{}, fmt.Errorf("pattern %q: %w", r.Pattern, err)
			}
		}
		if ok {
			effective = r
		}
	}
	return effective, nil
}

func newPackCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "pack SRCDIR IMAGE",
		Short: "Build an image from a directory tree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			srcDir, dst := args[0], args[1]

			cfg, err := loadPackConfig(configPath)
			if err != nil {
				return err
			}

			b := image.NewBuilder()
			if cfg.Heatshrink.WindowBits != 0 {
				b.WindowBits = cfg.Heatshrink.WindowBits
			}
			if cfg.Heatshrink.LookaheadBits != 0 {
				b.LookaheadBits = cfg.Heatshrink.LookaheadBits
			}

			out := cmd.OutOrStdout()
			err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				rel, err := filepath.Rel(srcDir, path)
				if err != nil {
					return err
				}
				if rel == "." {
					return nil
				}
				rel = filepath.ToSlash(rel)

				if d.IsDir() {
					return b.AddDir(rel)
				}

				rule, err := cfg.ruleFor(rel)
				if err != nil {
					return err
				}
				if rule.Discard {
					fmt.Fprintf(out, "%-40s discarded\n", rel)
					return nil
				}

				comp, err := image.ParseCompression(rule.Compression)
				if err != nil {
					return fmt.Errorf("%s: %w", rel, err)
				}
				var flags image.Flags
				if rule.Gzip {
					if comp != image.CompressionNone {
						return fmt.Errorf("%s: gzip flag requires compression none", rel)
					}
					flags |= image.FlagGzip
				}
				if rule.Cache {
					flags |= image.FlagCache
				}

				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%-40s %s (%d B)\n", rel, comp, len(data))
				return b.AddFile(rel, data, comp, flags)
			})
			if err != nil {
				return err
			}

			img, err := b.Build()
			if err != nil {
				return err
			}
			if err := os.WriteFile(dst, img, 0o644); err != nil {
				return fmt.Errorf("write image: %w", err)
			}
			fmt.Fprintf(out, "wrote %s (%d B)\n", dst, len(img))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "TOML pack configuration")
	return cmd
}
