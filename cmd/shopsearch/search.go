package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/shopsearch/internal/domain/upload"
	logpkg "github.com/kailas-cloud/shopsearch/internal/logger"
	"github.com/kailas-cloud/shopsearch/internal/usecase/session"
)

var (
	searchTopN int
	searchPage int
)

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Run a text search and print a page of results",
	Example: `  shopsearch search red floral dress --top 10
  shopsearch search "running shoes for men" --page 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var imageSearchCmd = &cobra.Command{
	Use:   "image-search <file>",
	Short: "Run an image search and print a page of results",
	Args:  cobra.ExactArgs(1),
	RunE:  runImageSearch,
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, imageSearchCmd} {
		c.Flags().IntVarP(&searchTopN, "top", "n", 0, "number of results to request (default from config)")
		c.Flags().IntVarP(&searchPage, "page", "p", 1, "results page to print")
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	return runOnce(cmd, func(ctx context.Context, sess *session.Session) error {
		sess.Bar.SetQuery(query)
		if !sess.Bar.Submit(ctx) {
			return errors.New("query must not be blank")
		}
		return nil
	})
}

func runImageSearch(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}
	return runOnce(cmd, func(ctx context.Context, sess *session.Session) error {
		sess.Bar.SelectImage(upload.New(path, "", data))
		if !sess.Bar.SubmitImage(ctx) {
			return fmt.Errorf("image %s is empty", path)
		}
		return nil
	})
}

// runOnce drives one session through a single search and prints the
// requested page.
func runOnce(cmd *cobra.Command, submit func(context.Context, *session.Session) error) error {
	cfg, err := loadConfig(resolveEnv())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// The config level targets the server; the CLI stays quiet unless asked.
	logger, err := logpkg.NewLogger("cli", logLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := logpkg.ContextWithLogger(cmd.Context(), logger)
	d, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.close()

	sess := session.New(uuid.NewString(), d.session)
	defer sess.Close()

	if searchTopN != 0 {
		if err := sess.Bar.SetTopN(searchTopN); err != nil {
			return fmt.Errorf("--top: %w", err)
		}
	}

	start := time.Now()
	if err := submit(ctx, sess); err != nil {
		return err
	}
	sess.Store.Wait()
	elapsed := time.Since(start)

	st := sess.State()
	if st.Error == "" && searchPage != 1 && !sess.Grid.GoToPage(searchPage) {
		return fmt.Errorf("page %d out of range (1-%d)", searchPage, sess.Grid.TotalPages())
	}

	fmt.Fprint(cmd.OutOrStdout(), renderResults(st, sess.Grid.View(), elapsed))
	if st.Error != "" {
		return errors.New(st.Error)
	}
	return nil
}
