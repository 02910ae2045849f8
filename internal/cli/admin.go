package cli

import (
	"fmt"
	"io"
	"os"

	"quiz-portal/internal/app"
	"quiz-portal/internal/auth"
	"quiz-portal/internal/config"
	"quiz-portal/internal/domain"
	"quiz-portal/internal/logging"

	"github.com/spf13/cobra"
)

// NewPromoteCmd grants the admin role to an existing profile.
func NewPromoteCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "promote <email>",
		Short: "Give a user the admin role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := requireDatabase(cfg); err != nil {
				return err
			}
			log := logging.New(serviceName, cfg.Log.Level, cfg.Log.Format)
			log.Logger.SetOutput(cmd.ErrOrStderr())

			store, closeStore, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closeStore()

			email := auth.NormalizeEmail(args[0])
			if err := store.SetRoleByEmail(cmd.Context(), email, domain.RoleAdmin); err != nil {
				return fmt.Errorf("promote %s: %w", email, err)
			}
			log.WithField("email", email).Info("user promoted to admin")
			return nil
		},
	}
}

// NewExportCmd writes submitted answers as CSV.
func NewExportCmd(configPath *string) *cobra.Command {
	var (
		quizID  int64
		outPath string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export answers as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := requireDatabase(cfg); err != nil {
				return err
			}
			log := logging.New(serviceName, cfg.Log.Level, cfg.Log.Format)
			log.Logger.SetOutput(cmd.ErrOrStderr())

			store, closeStore, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closeStore()

			answers, err := store.ListAnswers(cmd.Context(), app.AnswerFilter{QuizID: quizID})
			if err != nil {
				return fmt.Errorf("list answers: %w", err)
			}

			var w io.Writer = cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := app.ExportAnswersCSV(w, answers); err != nil {
				return err
			}
			log.WithField("answers", len(answers)).Info("answers exported")
			return nil
		},
	}
	cmd.Flags().Int64Var(&quizID, "quiz", 0, "only export answers to this quiz")
	cmd.Flags().StringVar(&outPath, "out", "", "write to file instead of stdout")
	return cmd
}
