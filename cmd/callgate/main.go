package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/samvad-hq/callgate/internal/app"
	"github.com/samvad-hq/callgate/internal/config"
	"github.com/samvad-hq/callgate/internal/logger"
)

const usage = `usage: callgate <command> [json-payload]

commands:
  get       call mock/getQuery
  del       call mock/postDel with a JSON body
  add       call mock/postAdd with a urlencoded body
  watch     poll the mock endpoints until interrupted
  history   list recently shown toasts
`

var errUsage = errors.New("invalid usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		}
		fmt.Fprintf(os.Stderr, "callgate failed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd := args[0]
	payload, err := parsePayload(args[1:])
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.DebugObj("callgate starting", "config", cfg.Redacted())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rt, err := app.NewRuntime(ctx, cfg, log)
	if err != nil {
		logger.ErrorObj("failed to initialize runtime", "error", err)
		return err
	}
	defer rt.Close()

	switch cmd {
	case "get":
		return printResult(out)(rt.Get(ctx))
	case "del":
		return printResult(out)(rt.Del(ctx, payload))
	case "add":
		return printResult(out)(rt.Add(ctx, payload))
	case "history":
		recs, err := rt.History()
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}
		return writeJSON(out, recs)
	case "watch":
		if err := rt.Watch(ctx); err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
}

// parsePayload decodes the optional JSON object argument.
func parsePayload(args []string) (map[string]any, error) {
	switch len(args) {
	case 0:
		return nil, nil
	case 1:
		var payload map[string]any
		if err := json.Unmarshal([]byte(args[0]), &payload); err != nil {
			return nil, fmt.Errorf("%w: payload must be a JSON object: %v", errUsage, err)
		}
		return payload, nil
	default:
		return nil, fmt.Errorf("%w: too many arguments", errUsage)
	}
}

// printResult writes the envelope on success. Call failures have already been
// toasted; they are still returned so the exit status reflects them.
func printResult(out io.Writer) func(any, error) error {
	return func(v any, err error) error {
		if err != nil {
			return err
		}
		return writeJSON(out, v)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
