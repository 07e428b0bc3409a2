package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/cosmicvault/locker/internal/accounts"
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a local account",
	Long: `Signup registers an account in the local user store. The security
question and answer are used for password recovery.`,
	Example: `  locker signup --user alice --question "First pet?"
  locker signup --user alice --password pw --question "First pet?" --answer Rex`,
	RunE: runSignup,
}

var (
	signupUser     string
	signupPassword string
	signupQuestion string
	signupAnswer   string
)

func init() {
	rootCmd.AddCommand(signupCmd)

	signupCmd.Flags().StringVarP(&signupUser, "user", "u", "",
		"User ID (required)")
	signupCmd.Flags().StringVarP(&signupPassword, "password", "p", "",
		"Account password (will prompt if not provided)")
	signupCmd.Flags().StringVarP(&signupQuestion, "question", "q", "",
		"Security question (required)")
	signupCmd.Flags().StringVarP(&signupAnswer, "answer", "a", "",
		"Security answer (will prompt if not provided)")

	_ = signupCmd.MarkFlagRequired("user")
	_ = signupCmd.MarkFlagRequired("question")
}

func runSignup(cmd *cobra.Command, args []string) error {
	password, err := resolvePassword(signupPassword, "Account password: ")
	if err != nil {
		return err
	}

	answer := signupAnswer
	if answer == "" {
		answer, err = promptPassword("Security answer: ")
		if err != nil {
			return err
		}
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	store, err := accounts.NewStore(cfg.Storage.UsersPath, logger)
	if err != nil {
		return err
	}

	err = store.Register(signupUser, accounts.User{
		Password:         password,
		SecurityQuestion: signupQuestion,
		SecurityAnswer:   answer,
	})
	if err != nil {
		if errors.Is(err, accounts.ErrUserExists) {
			printError("User %s already exists", signupUser)
		}
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"user_id": signupUser,
		})
	} else {
		printSuccess("Created account %s", signupUser)
	}

	return nil
}
