package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/devansharma-72/sensory-support-hub/llm"
	"github.com/devansharma-72/sensory-support-hub/log"
	"github.com/devansharma-72/sensory-support-hub/server"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the analysis and assistant backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := runContext(cmd)
			defer stop()

			if listen == "" {
				listen = a.cfg.Listen
			}
			var gen llm.Generator
			g, err := llm.NewGemini(ctx, a.cfg.GeminiAPIKey, a.cfg.GeminiModel)
			switch {
			case errors.Is(err, llm.ErrNoAPIKey):
				log.Warn("GEMINI_API_KEY not set, every reply will be the fallback text")
				cmd.PrintErrln("Warning: GEMINI_API_KEY not set, replies will use the fallback text")
			case err != nil:
				return err
			default:
				gen = g
				log.Infof("gemini model %s", g.Model())
			}

			srv := server.New(server.Options{Generator: gen})
			cmd.Printf("Listening on %s\n", listen)
			return srv.ListenAndServe(ctx, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config, :5000)")
	return cmd
}
