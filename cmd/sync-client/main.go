package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mediatrack/pkg/utils"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		addr      string
		token     string
		tokenFile string
		pretty    bool
		once      bool
		logLevel  string
	)
	cmd := &cobra.Command{
		Use:          "sync-client",
		Short:        "Follow your list changes over the TCP sync feed",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := utils.NewLogger(utils.LogConfig{Level: logLevel}, "", os.Stderr)

			if token == "" {
				t, err := readTokenFile(tokenFile)
				if err != nil {
					return err
				}
				token = t
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			for {
				err := follow(ctx, addr, token, pretty, out, logger)
				if ctx.Err() != nil {
					return nil
				}
				if errors.Is(err, errRejected) || once {
					return err
				}
				logger.Warn("disconnected, reconnecting", "addr", addr, "error", err)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(time.Second):
				}
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:7070", "TCP sync server address")
	cmd.Flags().StringVar(&token, "token", os.Getenv("MEDIATRACK_TOKEN"), "bearer token (defaults to the CLI's saved token)")
	cmd.Flags().StringVar(&tokenFile, "token-file", defaultTokenPath(), "token file written by 'mediatrack auth login'")
	cmd.Flags().BoolVar(&pretty, "pretty", true, "pretty print JSON events")
	cmd.Flags().BoolVar(&once, "once", false, "exit instead of reconnecting")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level")
	return cmd
}

var errRejected = errors.New("server rejected token")

// follow sends the token line and copies events to out until the connection
// drops or ctx ends.
func follow(ctx context.Context, addr, token string, pretty bool, out io.Writer, logger *slog.Logger) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	if _, err := fmt.Fprintf(conn, "%s\n", token); err != nil {
		return err
	}
	logger.Info("connected", "addr", addr)

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()

		var ev map[string]any
		if err := json.Unmarshal(line, &ev); err != nil {
			fmt.Fprintln(out, string(line))
			continue
		}
		if ev["type"] == "error" {
			return fmt.Errorf("%w: %v", errRejected, ev["message"])
		}
		if !pretty {
			fmt.Fprintln(out, string(line))
			continue
		}
		b, _ := json.MarshalIndent(ev, "", "  ")
		fmt.Fprintln(out, string(b))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.mediatrack-token.json"
	}
	return filepath.Join(home, ".mediatrack", "token.json")
}

func readTokenFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("no token given and %s unreadable: %w", path, err)
	}
	var td struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &td); err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	if strings.TrimSpace(td.Token) == "" {
		return "", errors.New("token file has no token")
	}
	return td.Token, nil
}
