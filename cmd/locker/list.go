package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"files"},
	Short:   "List locked files in the vault",
	Example: `  locker list --user alice`,
	RunE:    runList,
}

var recycleCmd = &cobra.Command{
	Use:     "recycle",
	Short:   "List files in the recycle bin",
	Example: `  locker recycle --user alice`,
	RunE:    runRecycle,
}

var (
	listUser    string
	recycleUser string
)

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(recycleCmd)

	listCmd.Flags().StringVarP(&listUser, "user", "u", "", "User ID (required)")
	_ = listCmd.MarkFlagRequired("user")

	recycleCmd.Flags().StringVarP(&recycleUser, "user", "u", "", "User ID (required)")
	_ = recycleCmd.MarkFlagRequired("user")
}

func runList(cmd *cobra.Command, args []string) error {
	svc, err := newVaultService()
	if err != nil {
		return err
	}
	defer svc.Close()

	files, err := svc.List(listUser)
	if err != nil {
		return err
	}

	printFileList(files, "Vault is empty")
	return nil
}

func runRecycle(cmd *cobra.Command, args []string) error {
	svc, err := newVaultService()
	if err != nil {
		return err
	}
	defer svc.Close()

	files, err := svc.ListRecycleBin(recycleUser)
	if err != nil {
		return err
	}

	printFileList(files, "Recycle bin is empty")
	return nil
}

func printFileList(files []string, emptyMsg string) {
	if jsonOutput {
		printJSON(map[string]interface{}{"files": files})
		return
	}

	if len(files) == 0 {
		printInfo(emptyMsg)
		return
	}
	for _, f := range files {
		fmt.Println(f)
	}
}
