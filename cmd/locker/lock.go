package main

import (
	"os"

	"github.com/spf13/cobra"
)

var lockCmd = &cobra.Command{
	Use:   "lock <file>",
	Short: "Encrypt a file into the vault",
	Long: `Lock encrypts a file with a key derived from your password and
stores it in the vault. The source file is removed after a
successful lock unless --keep is set.`,
	Example: `  locker lock report.pdf --user alice
  locker lock notes.txt --user alice --keep`,
	Args: cobra.ExactArgs(1),
	RunE: runLock,
}

var (
	lockUser     string
	lockPassword string
	lockKeep     bool
)

func init() {
	rootCmd.AddCommand(lockCmd)

	lockCmd.Flags().StringVarP(&lockUser, "user", "u", "",
		"User ID (required)")
	lockCmd.Flags().StringVarP(&lockPassword, "password", "p", "",
		"Vault password (will prompt if not provided)")
	lockCmd.Flags().BoolVar(&lockKeep, "keep", false,
		"Keep the source file after locking")

	_ = lockCmd.MarkFlagRequired("user")
}

func runLock(cmd *cobra.Command, args []string) error {
	path := args[0]

	password, err := resolvePassword(lockPassword, "Vault password: ")
	if err != nil {
		return err
	}

	svc, err := newVaultService()
	if err != nil {
		return err
	}
	defer svc.Close()

	var storedID string
	if lockKeep {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		storedID, err = svc.Lock(lockUser, password, data, path)
		if err != nil {
			return err
		}
	} else {
		storedID, err = svc.LockPath(lockUser, password, path)
		if err != nil {
			return err
		}
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success":   true,
			"file_name": storedID,
		})
	} else {
		printSuccess("Locked %s as %s", path, storedID)
	}

	return nil
}
