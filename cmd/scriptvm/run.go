package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hackchain/scriptvm/pkg/vm"
)

func newRunCmd() *cobra.Command {
	var hashHex, outputFile, inputFile, traceAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single job directly, in this process, for debugging",
		RunE: func(cmd *cobra.Command, args []string) error {
			hashBytes, err := hex.DecodeString(hashHex)
			if err != nil || len(hashBytes) != 32 {
				return fmt.Errorf("scriptvm run: --hash must be 32 bytes of hex")
			}
			var hash [32]byte
			copy(hash[:], hashBytes)

			output, err := os.ReadFile(outputFile)
			if err != nil {
				return fmt.Errorf("scriptvm run: reading --output file: %w", err)
			}
			var input []byte
			if inputFile != "" {
				if input, err = os.ReadFile(inputFile); err != nil {
					return fmt.Errorf("scriptvm run: reading --input file: %w", err)
				}
			}

			machine := vm.NewVM(hash, output)
			if traceAddr != "" {
				sink, err := vm.ListenTrace(traceAddr)
				if err != nil {
					return fmt.Errorf("scriptvm run: trace listener: %w", err)
				}
				defer sink.Close()
				machine.Trace = sink
				log.Info().Str("addr", traceAddr).Msg("scriptvm run: waiting for trace client")
			}

			success := machine.Run(input)
			log.Info().Bool("success", success).Msg("scriptvm run: finished")
			if !success {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&hashHex, "hash", "", "32-byte hex-encoded target hash")
	cmd.Flags().StringVar(&outputFile, "output", "", "path to the raw output script bytes run by thread 0")
	cmd.Flags().StringVar(&inputFile, "input", "", "path to the raw input bytes handed to thread 1")
	cmd.Flags().StringVar(&traceAddr, "trace-addr", "", "listen address for a debug trace client (optional)")
	_ = cmd.MarkFlagRequired("hash")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
