package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flowbit/nl2sql/internal/agent"
	"github.com/flowbit/nl2sql/internal/apperr"
	"github.com/flowbit/nl2sql/internal/security"
	"github.com/flowbit/nl2sql/internal/service"
	"github.com/spf13/cobra"
)

var askSQLOnly bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question and print the response JSON",
	Long: `Run one question through the same pipeline the HTTP service uses and print
the Chat Response as JSON.

Examples:
  nl2sql ask "Show me all invoices"
  nl2sql ask --sql "Top 5 vendors by total spend"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askSQLOnly, "sql", false, "print only the executed SQL")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()

	db, err := service.NewPostgresService(ctx, service.PoolConfig{
		DSN:              cfg.DatabaseURL,
		MinConns:         1,
		MaxConns:         1,
		ConnectTimeout:   cfg.DBConnectTimeout.Duration,
		StatementTimeout: cfg.DBStatementTimeout.Duration,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	gen, err := agent.NewGenerator(agent.GeneratorConfig{
		Provider:    cfg.LLMProvider,
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout.Duration,
	})
	if err != nil {
		return err
	}

	sqlAgent := agent.NewSQLAgent(gen, db, security.NewSQLValidator(), security.NewAuditLogger(false), cfg.MaxRows)

	resp, err := sqlAgent.Handle(ctx, strings.Join(args, " "))
	if err != nil {
		e := apperr.As(err)
		return fmt.Errorf("%s (%d)", e.Message, apperr.HTTPStatus(e.Kind))
	}

	out := cmd.OutOrStdout()
	if askSQLOnly {
		fmt.Fprintln(out, resp.GeneratedSQL)
		return nil
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
