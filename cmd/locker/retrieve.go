package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cosmicvault/locker/internal/models"
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve <stored-name>",
	Short: "Decrypt a file from the vault",
	Long: `Retrieve decrypts a locked file and writes the plaintext to the
output path. The file stays in the vault.`,
	Example: `  locker retrieve alice_report.pdf.enc --user alice
  locker retrieve alice_report.pdf.enc --user alice --output /tmp/report.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

var (
	retrieveUser     string
	retrievePassword string
	retrieveOutput   string
)

func init() {
	rootCmd.AddCommand(retrieveCmd)

	retrieveCmd.Flags().StringVarP(&retrieveUser, "user", "u", "",
		"User ID (required)")
	retrieveCmd.Flags().StringVarP(&retrievePassword, "password", "p", "",
		"Vault password (will prompt if not provided)")
	retrieveCmd.Flags().StringVarP(&retrieveOutput, "output", "o", "",
		"Output path (defaults to the original filename)")

	_ = retrieveCmd.MarkFlagRequired("user")
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	storedID := args[0]

	password, err := resolvePassword(retrievePassword, "Vault password: ")
	if err != nil {
		return err
	}

	svc, err := newVaultService()
	if err != nil {
		return err
	}
	defer svc.Close()

	content, err := svc.Retrieve(storedID, retrieveUser, password)
	if err != nil {
		return err
	}

	outPath := retrieveOutput
	if outPath == "" {
		outPath = strings.TrimSuffix(filepath.Base(storedID), models.StoredIDSuffix)
		outPath = strings.TrimPrefix(outPath, retrieveUser+"_")
	}

	if err := os.WriteFile(outPath, content, 0600); err != nil {
		return err
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": true,
			"output":  outPath,
			"size":    len(content),
		})
	} else {
		printSuccess("Retrieved %s to %s (%d bytes)", storedID, outPath, len(content))
	}

	return nil
}
