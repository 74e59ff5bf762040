package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	publishKeystoreDir   string
	publishDirectoryFile string
	publishPartyName     string
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish a party's public keys to a directory seed file",
	Long: `publish exports a party's already-generated signing and
encryption public keys as JWK and records them in a directory seed
file, so counterparties can build a PublicKeyDirectory that knows
about the party.`,
	Example: `  cop publish --keystore ./keys --party "Lays Chips" --directory ./directory.yaml`,
	RunE:    runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)

	publishCmd.Flags().StringVar(&publishKeystoreDir, "keystore", "", "keystore directory (required)")
	publishCmd.Flags().StringVar(&publishDirectoryFile, "directory", "", "directory seed file to publish into (required)")
	publishCmd.Flags().StringVar(&publishPartyName, "party", "", "party name (required)")
	publishCmd.MarkFlagRequired("keystore")
	publishCmd.MarkFlagRequired("directory")
	publishCmd.MarkFlagRequired("party")
}

func runPublish(cmd *cobra.Command, args []string) error {
	ks, err := newKeyStore(publishKeystoreDir)
	if err != nil {
		return err
	}
	if err := publishParty(publishDirectoryFile, publishPartyName, ks); err != nil {
		return err
	}
	fmt.Printf("Published %q to %s\n", publishPartyName, publishDirectoryFile)
	return nil
}
