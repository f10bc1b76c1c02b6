package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-formctx/pkg/autosave"
	"github.com/goliatone/go-formctx/pkg/render"
	"github.com/goliatone/go-formctx/pkg/renderers/tui"
)

func (a *app) newFillCmd() *cobra.Command {
	var (
		flags        formFlags
		stripContext bool
		draft        string
		draftDelay   time.Duration
		maxAttempts  int
	)
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill a form interactively",
		Long: `fill prompts for every field of the active contexts, following
discriminator answers into the contexts they select, and prints the submission
payload once the form is valid. --values prefills the prompts' defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c, err := a.prepare(ctx, flags)
			if err != nil {
				return err
			}
			payloadOpts := render.PayloadOptions{StripContext: stripContext, Sanitize: true}

			if draft != "" {
				q := autosave.New(writeDraft(draft), autosave.WithDelay(draftDelay), autosave.WithLogger(a.logger))
				stop := autosave.Watch(c, q, payloadOpts)
				defer func() {
					stop()
					flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					if err := q.Flush(flushCtx); err != nil {
						a.logger.Warn("draft not flushed", slog.String("error", err.Error()))
					}
					q.Close()
				}()
			}

			driver := a.driver
			if driver == nil {
				driver = tui.NewSurveyDriver(a.stderr)
			}
			session := tui.New(
				tui.WithPromptDriver(driver),
				tui.WithMaxAttempts(maxAttempts),
				tui.WithLogger(a.logger),
			)
			snapshot, err := session.Run(ctx, c)
			if err != nil {
				return err
			}

			payload, err := render.Payload(snapshot, payloadOpts)
			if err != nil {
				return err
			}
			if a.output == outputJSON {
				return writeJSON(a.stdout, payload)
			}
			writeValuesTable(a.stdout, snapshot)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&stripContext, "strip-context", false, "merge active contexts into one payload object")
	cmd.Flags().StringVar(&draft, "draft", "", "file the payload is autosaved to while the form is valid")
	cmd.Flags().DurationVar(&draftDelay, "draft-delay", autosave.DefaultDelay, "debounce interval for --draft writes")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", tui.DefaultMaxAttempts, "prompts per field before giving up")
	return cmd
}

func writeDraft(path string) autosave.SubmitFunc {
	return func(ctx context.Context, payload map[string]any) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return fmt.Errorf("encode draft: %w", err)
		}
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write draft: %w", err)
		}
		return os.Rename(tmp, path)
	}
}
