package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"simulacra/config"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch CONFIG_FILE",
	Short: "watch a configuration file and report each reload's hash until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]

	tree := config.NewTree()
	if err := tree.LoadYAML(config.LayerModelOverride, path); err != nil {
		return err
	}
	hash, err := tree.Hash()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "loaded %s (%s)\n", path, hash)

	watcher, err := config.NewWatcher(tree, config.LayerModelOverride, path)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	changes, errs := watcher.Watch()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reloaded %s (%s)\n", change.Path, change.Hash)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "watch error: %v\n", err)
		}
	}
}
