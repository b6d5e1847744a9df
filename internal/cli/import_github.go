package cli

import (
	"fmt"

	portfoliosvc "estate-backend/internal/application/portfolio"
	"estate-backend/internal/config"
	"estate-backend/internal/domain"
	"estate-backend/internal/infrastructure/database"

	"github.com/spf13/cobra"
)

func ImportGitHubCmd() *cobra.Command {
	opts := portfoliosvc.DefaultImportOptions()
	var all, draft, noReadme, overwrite bool
	var apiURL string
	cmd := &cobra.Command{
		Use:   "import-github <owner>[/<repo>] [repo]",
		Short: "Import GitHub repositories into the website portfolio",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, sqlite, err := openDB(cmd)
			if err != nil {
				return err
			}
			if sqlite {
				if err := database.AutoMigrate(db); err != nil {
					return err
				}
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.PublishNow = !draft
			opts.FetchReadme = !noReadme
			opts.SkipExisting = !overwrite
			svc := &portfoliosvc.Service{
				DB:     db,
				GitHub: &portfoliosvc.GitHubClient{BaseURL: apiURL, Token: cfg.GitHubToken},
			}
			out := cmd.OutOrStdout()
			actor := domain.SystemActor()

			if all {
				sum, err := svc.ImportAll(cmd.Context(), actor, args[0], opts)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "created %d, updated %d, skipped %d\n", sum.Created, sum.Updated, sum.Skipped)
				return nil
			}
			repo := ""
			if len(args) == 2 {
				repo = args[1]
			}
			res, err := svc.ImportRepo(cmd.Context(), actor, args[0], repo, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s: %s\n", res.Status, res.Project.Name)
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&all, "all", false, "import every repository of the owner")
	f.BoolVar(&opts.IncludePrivate, "include-private", false, "include private repositories (needs GITHUB_TOKEN)")
	f.BoolVar(&opts.ImportTopics, "topics", true, "tag projects with repository topics")
	f.BoolVar(&opts.ImportPrimaryLang, "primary-language", true, "tag projects with the primary language")
	f.BoolVar(&opts.ImportAllLanguages, "all-languages", false, "tag projects with every language")
	f.BoolVar(&draft, "draft", false, "import unpublished")
	f.BoolVar(&noReadme, "no-readme", false, "skip README download")
	f.BoolVar(&overwrite, "overwrite", false, "update projects that were imported before")
	f.StringVar(&apiURL, "api-url", "", "GitHub API base URL")
	return cmd
}
