package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fwojciec/chat"
	"github.com/fwojciec/chat/sse"
	"github.com/fwojciec/chat/websocket"
	"github.com/fwojciec/chat/yaml"
	chatzap "github.com/fwojciec/chat/zap"
	"github.com/spf13/cobra"
)

func newSendCmd(load func() (yaml.Config, error)) *cobra.Command {
	var maxTokens int
	cmd := &cobra.Command{
		Use:   "send <message>",
		Short: "Send one message to the relay and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if maxTokens == 0 {
				maxTokens = cfg.Client.MaxTokens
			}
			transport, err := clientTransport(cfg.Client)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if cfg.Client.Timeout.Duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.Client.Timeout.Duration)
				defer cancel()
			}
			req := chat.Request{Message: strings.Join(args, " "), MaxTokens: maxTokens}
			session, sync, err := clientSession(cfg.Log, transport, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sync()
			return sendOnce(ctx, session, req, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "response token limit (0 uses client.max_tokens)")
	return cmd
}

// clientSession creates a session whose dropped frames and failures are
// logged to w. The returned func flushes the logger.
func clientSession(cfg yaml.LogConfig, transport chat.Transport, w io.Writer) (*chat.Session, func(), error) {
	logger, err := chatzap.NewWithWriter(chatzap.Config{Level: cfg.Level, Format: cfg.Format}, w)
	if err != nil {
		return nil, nil, err
	}
	return chat.NewSession(transport, chat.WithLogger(logger)), func() { _ = logger.Sync() }, nil
}

// clientTransport builds the transport named by cfg.Transport.
func clientTransport(cfg yaml.ClientConfig) (chat.Transport, error) {
	switch cfg.Transport {
	case "sse":
		return sse.NewClient(cfg.URL), nil
	case "websocket":
		return websocket.NewClient(cfg.URL), nil
	default:
		return nil, fmt.Errorf("unknown transport %q: must be \"sse\" or \"websocket\"", cfg.Transport)
	}
}

// sendOnce runs one exchange and streams assistant text to out as it grows.
// Server-reported errors go to errOut.
func sendOnce(ctx context.Context, s *chat.Session, req chat.Request, out, errOut io.Writer) error {
	printed := make(map[int]int)
	err := s.Send(ctx, req, chat.WithEventHandler(func(e chat.SessionEvent) {
		switch e := e.(type) {
		case chat.SessionAppended:
			if e.Message.Role != chat.RoleAssistant {
				return
			}
			n := printed[e.Index]
			if len(e.Message.Content) > n {
				fmt.Fprint(out, e.Message.Content[n:])
				printed[e.Index] = len(e.Message.Content)
			}
		case chat.SessionServerError:
			fmt.Fprintf(errOut, "server error: %s\n", e.Message)
		}
	}))
	if len(printed) > 0 {
		fmt.Fprintln(out)
	}
	return err
}
