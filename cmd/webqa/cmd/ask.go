package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"webqa/internal/gateway"
)

func newAskCmd(opts *rootOptions) *cobra.Command {
	var (
		urls     []string
		key      string
		uri      string
		user     string
		password string
	)

	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Load the given pages and answer one question",
		Example: `  webqa ask --url https://milvus.io/docs/overview.md "What is milvus?"
  webqa --config webqa.yaml ask --url https://a --url https://b "Summarize both pages"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gw, err := buildGateway(opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			status := gw.WebLoad(cmd.Context(), strings.Join(urls, "\n"), key, uri, user, password)
			_, _ = fmt.Fprintln(out, "load status:", status)
			if status != gateway.MsgLoadSuccess {
				return errors.New(status)
			}

			answer := gw.GenerateAnswer(cmd.Context(), strings.Join(args, " "))
			_, _ = fmt.Fprintln(out, answer)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&urls, "url", nil, "Page to load (repeatable)")
	cmd.Flags().StringVar(&key, "openai-key", "", "OpenAI API key (default $OPENAI_API_KEY)")
	cmd.Flags().StringVar(&uri, "zilliz-uri", "", "Zilliz Cloud URI (default $ZILLIZ_URI)")
	cmd.Flags().StringVar(&user, "user", "", "Zilliz user (default $ZILLIZ_USER)")
	cmd.Flags().StringVar(&password, "password", "", "Zilliz password (default $ZILLIZ_PASSWORD)")
	return cmd
}
