package handlers

import (
	"context"
	"fmt"
	"html"
	"os"

	"github.com/spf13/cobra"

	"newspop/internal/config"
	"newspop/internal/core"
	"newspop/internal/digest"
	"newspop/internal/email"
	"newspop/internal/llm"
	"newspop/internal/logger"
)

// NewDigestCmd creates the digest generation command.
func NewDigestCmd() *cobra.Command {
	var (
		parquetPath string
		dataDir     string
		postsDir    string
		batch       bool
		sendEmail   bool
		emailTo     string
	)

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Generate the press-review digest from collected articles",
		Long: `Generate an Italian-language press-review digest from the most recent
article snapshots. By default the latest parquet file of each source is
loaded and same-day snapshots are merged; --parquet uses exactly one file.

Generation runs synchronously against the Gemini API (GEMINI_API_KEY), or
as an asynchronous Anthropic message batch with --batch (ANTHROPIC_API_KEY).

Examples:

  # Digest from the latest snapshots
  newspop digest

  # Digest from one specific snapshot, via the batch API
  newspop digest --parquet data/gdelt_20240107_060000.parquet --batch

  # Mail the digest when done
  newspop digest --send-email --email-to team@example.org`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDigest(cmd.Context(), parquetPath, dataDir, postsDir, batch, sendEmail, emailTo)
		},
	}

	cmd.Flags().StringVar(&parquetPath, "parquet", "", "generate from exactly this parquet file")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "snapshot directory (overrides config)")
	cmd.Flags().StringVar(&postsDir, "posts-dir", "", "digest output directory (overrides config)")
	cmd.Flags().BoolVar(&batch, "batch", false, "use the asynchronous message-batch API")
	cmd.Flags().BoolVar(&sendEmail, "send-email", false, "mail the generated digest")
	cmd.Flags().StringVar(&emailTo, "email-to", "", "digest recipient (overrides config)")

	return cmd
}

// batchGenerator routes generation through the asynchronous batch endpoint.
type batchGenerator struct {
	*llm.AnthropicGenerator
}

func (b batchGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	return b.GenerateBatch(ctx, system, user)
}

func runDigest(ctx context.Context, parquetPath, dataDir, postsDir string, batch, sendEmail bool, emailTo string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if dataDir != "" {
		cfg.Digest.DataDir = dataDir
	}
	if postsDir != "" {
		cfg.Digest.PostsDir = postsDir
	}
	if emailTo != "" {
		cfg.Email.To = emailTo
	}

	var gen llm.Generator
	if batch {
		opts := llm.Options{Model: cfg.Digest.Model, MaxTokens: cfg.Digest.MaxTokens}
		a, err := llm.NewAnthropic(os.Getenv(config.EnvAnthropicAPIKey), opts, logger.For("llm"),
			llm.WithPolling(cfg.Digest.PollIntervalDuration(), cfg.Digest.MaxPolls))
		if err != nil {
			return err
		}
		gen = batchGenerator{a}
	} else {
		opts := llm.Options{Model: cfg.Digest.GeminiModel, MaxTokens: cfg.Digest.MaxTokens}
		g, err := llm.NewGemini(ctx, os.Getenv(config.EnvGeminiAPIKey), opts)
		if err != nil {
			return err
		}
		defer g.Close()
		gen = g
	}

	d := digest.New(cfg.Digest, gen, logger.For("digest"))
	articles, err := d.LoadArticles(parquetPath)
	if err != nil {
		return err
	}

	path, err := d.Run(ctx, articles)
	if err != nil {
		return err
	}
	if path == "" {
		return nil
	}
	log := logger.Get()
	log.Info().Str("path", path).Msg("digest saved")

	if sendEmail {
		sendDigestMail(cfg, path, articles)
	}
	return nil
}

// sendDigestMail mails the saved digest; delivery problems are logged, never
// fatal.
func sendDigestMail(cfg *config.Config, path string, articles core.Table) {
	log := logger.For("email")
	m := email.NewMailer(cfg.Email, log)
	if !m.Enabled() {
		log.Warn().Msg("mail credentials or recipient missing, skipping digest email")
		return
	}

	text, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("cannot read saved digest")
		return
	}

	used := articles.WithFullText()
	from, to, _ := used.DateRange()
	subject := email.Subject("digest", len(used), from, to)
	htmlBody := "<pre>" + html.EscapeString(string(text)) + "</pre>"
	if err := m.Send(cfg.Email.To, subject, string(text), htmlBody); err != nil {
		log.Error().Err(err).Msg("digest email failed")
	}
}
