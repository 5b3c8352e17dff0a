package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/flowbit/nl2sql/internal/security"
	"github.com/flowbit/nl2sql/internal/sqltext"
	"github.com/spf13/cobra"
)

var errUnsafe = errors.New("sql rejected")

var checkSQLCmd = &cobra.Command{
	Use:   "check-sql [sql]",
	Short: "Run the safety gate on SQL text",
	Long: `Run the SQL safety gate on the given text, or on stdin when no argument is
given, and print the verdict. Markdown fences are stripped first, as they are
for generated SQL. Exits non-zero when the SQL is rejected.

Examples:
  nl2sql check-sql 'SELECT * FROM "Invoice"'
  echo 'SELECT 1; DROP TABLE x' | nl2sql check-sql`,
	RunE: runCheckSQL,
}

func runCheckSQL(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = string(b)
	}

	sql := sqltext.StripTrailingSemicolon(sqltext.ExtractSQL(text))
	out := cmd.OutOrStdout()

	if reason := security.NewSQLValidator().Validate(sql); reason != "" {
		fmt.Fprintf(out, "unsafe: %s\n", reason)
		return errUnsafe
	}
	fmt.Fprintln(out, "safe")
	return nil
}
