package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <stored-name>",
	Short:   "Move a locked file to the recycle bin",
	Example: `  locker delete alice_report.pdf.enc --user alice`,
	Args:    cobra.ExactArgs(1),
	RunE:    runDelete,
}

var restoreCmd = &cobra.Command{
	Use:     "restore <stored-name>",
	Short:   "Restore a file from the recycle bin",
	Example: `  locker restore alice_report.pdf.enc --user alice`,
	Args:    cobra.ExactArgs(1),
	RunE:    runRestore,
}

var (
	deleteUser  string
	restoreUser string
)

func init() {
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(restoreCmd)

	deleteCmd.Flags().StringVarP(&deleteUser, "user", "u", "", "User ID (required)")
	_ = deleteCmd.MarkFlagRequired("user")

	restoreCmd.Flags().StringVarP(&restoreUser, "user", "u", "", "User ID (required)")
	_ = restoreCmd.MarkFlagRequired("user")
}

func runDelete(cmd *cobra.Command, args []string) error {
	storedID := args[0]

	svc, err := newVaultService()
	if err != nil {
		return err
	}
	defer svc.Close()

	if !svc.Delete(storedID, deleteUser, "") {
		return fmt.Errorf("failed to delete %s", storedID)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{"success": true, "file_name": storedID})
	} else {
		printSuccess("%s moved to recycle bin", storedID)
	}

	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	storedID := args[0]

	svc, err := newVaultService()
	if err != nil {
		return err
	}
	defer svc.Close()

	if !svc.Restore(storedID, restoreUser, "") {
		return fmt.Errorf("failed to restore %s", storedID)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{"success": true, "file_name": storedID})
	} else {
		printSuccess("%s restored to vault", storedID)
	}

	return nil
}
