package main

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/spf13/cobra"

	"github.com/odvcencio/padfs/pkg/image"
)

func newCatCmd() *cobra.Command {
	var decode bool

	cmd := &cobra.Command{
		Use:   "cat IMAGE PATH",
		Short: "Write file contents to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fs, err := mountImageFile(args[0])
			if err != nil {
				return err
			}
			defer fs.Close()

			f, err := fs.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			var r io.Reader = f
			if decode && f.Stat().Flags&image.FlagGzip != 0 {
				gr, err := gzip.NewReader(f)
				if err != nil {
					return fmt.Errorf("gunzip %s: %w", args[1], err)
				}
				defer gr.Close()
				r = gr
			}

			_, err = io.Copy(cmd.OutOrStdout(), r)
			return err
		},
	}

	cmd.Flags().BoolVar(&decode, "decode", false, "gunzip entries stored with the gzip flag")
	return cmd
}
