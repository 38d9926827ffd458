package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hackchain/scriptvm/pkg/pool"
)

func newPoolCmd() *cobra.Command {
	var hashHex, outputFile, inputFile string
	var workers int

	cmd := &cobra.Command{
		Use:   "pool",
		Short: "Spawn a worker pool of isolated subprocesses and submit one job to it",
		RunE: func(cmd *cobra.Command, args []string) error {
			hashBytes, err := hex.DecodeString(hashHex)
			if err != nil || len(hashBytes) != 32 {
				return fmt.Errorf("scriptvm pool: --hash must be 32 bytes of hex")
			}
			var hash [32]byte
			copy(hash[:], hashBytes)

			output, err := os.ReadFile(outputFile)
			if err != nil {
				return fmt.Errorf("scriptvm pool: reading --output file: %w", err)
			}
			var input []byte
			if inputFile != "" {
				if input, err = os.ReadFile(inputFile); err != nil {
					return fmt.Errorf("scriptvm pool: reading --input file: %w", err)
				}
			}

			self, err := os.Executable()
			if err != nil {
				return fmt.Errorf("scriptvm pool: locating own binary to re-exec as workers: %w", err)
			}

			ctx := context.Background()
			p, err := pool.NewPool(ctx, workers, pool.NewExecSpawner(self, "worker"))
			if err != nil {
				return fmt.Errorf("scriptvm pool: starting pool: %w", err)
			}
			defer p.Close()

			done := make(chan struct{})
			var success bool
			var jobErr error
			p.Submit(pool.Job{Hash: hash, Output: output, Input: input}, func(s bool, err error) {
				success, jobErr = s, err
				close(done)
			})
			<-done

			if jobErr != nil {
				return fmt.Errorf("scriptvm pool: job failed: %w", jobErr)
			}
			log.Info().Bool("success", success).Msg("scriptvm pool: job finished")
			if !success {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hashHex, "hash", "", "32-byte hex-encoded target hash")
	cmd.Flags().StringVar(&outputFile, "output", "", "path to the raw output script bytes run by thread 0")
	cmd.Flags().StringVar(&inputFile, "input", "", "path to the raw input bytes handed to thread 1")
	cmd.Flags().IntVar(&workers, "workers", 4, "number of isolated worker processes in the pool")
	_ = cmd.MarkFlagRequired("hash")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
