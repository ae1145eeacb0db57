package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fwojciec/chat"
	bt "github.com/fwojciec/chat/bubbletea"
	"github.com/fwojciec/chat/yaml"
	"github.com/spf13/cobra"
)

func newTUICmd(load func() (yaml.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Chat with the relay in an interactive terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			transport, err := clientTransport(cfg.Client)
			if err != nil {
				return err
			}
			logFile, err := openLogFile(cfg.Log.File)
			if err != nil {
				return err
			}
			defer logFile.Close()

			session, sync, err := clientSession(cfg.Log, transport, logFile)
			if err != nil {
				return err
			}
			defer sync()

			m := bt.New(bt.SessionSender(session, cfg.Client.MaxTokens), session.Transcript().Messages(), chat.DefaultTheme())
			return bt.Run(cmd.Context(), m)
		},
	}
}

// openLogFile opens path for appending. The alt screen owns the terminal, so
// without a path logs are discarded.
func openLogFile(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopWriteCloser{io.Discard}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }
