// Command chat runs the chat relay server and its clients.
//
// Usage:
//
//	chat serve [--config chat.yaml]       relay requests to the upstream model
//	chat send [--config chat.yaml] <msg>  send one message and print the reply
//	chat tui [--config chat.yaml]         interactive terminal client
//
// The upstream API key comes from upstream.api_key in the config file or,
// when unset, from ANTHROPIC_API_KEY or GEMINI_API_KEY.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fwojciec/chat/yaml"
	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "chat: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:           "chat",
		Short:         "Streaming chat relay and clients",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (defaults apply when omitted)")

	load := func() (yaml.Config, error) { return loadConfig(cfgFile) }
	root.AddCommand(newServeCmd(load), newSendCmd(load), newTUICmd(load))
	return root
}

// loadConfig reads path, or starts from an empty config when path is empty,
// and fills in defaults.
func loadConfig(path string) (yaml.Config, error) {
	var cfg yaml.Config
	if path != "" {
		loaded, err := yaml.Load(path)
		if err != nil {
			return yaml.Config{}, err
		}
		cfg = *loaded
	}
	return cfg.WithDefaults(), nil
}
