package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	keygenKeystoreDir   string
	keygenDirectoryFile string
	keygenPartyName     string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a party's signing and encryption identity",
	Long: `keygen creates one party's Ed25519 signing key pair and X25519
encryption key pair and stores both in a file-backed keystore. Generation
is write-once: keygen fails if the party already has an identity on
record.`,
	Example: `  cop keygen --keystore ./keys --party "Ching Chong Extractions"`,
	RunE:    runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().StringVar(&keygenKeystoreDir, "keystore", "", "keystore directory (required)")
	keygenCmd.Flags().StringVar(&keygenDirectoryFile, "directory", "", "directory seed file to publish into (optional)")
	keygenCmd.Flags().StringVar(&keygenPartyName, "party", "", "party name (required)")
	keygenCmd.MarkFlagRequired("keystore")
	keygenCmd.MarkFlagRequired("party")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	ks, err := newKeyStore(keygenKeystoreDir)
	if err != nil {
		return err
	}

	if _, err := ks.Generate(keygenPartyName); err != nil {
		return err
	}
	fmt.Printf("Generated identity for %q in %s\n", keygenPartyName, keygenKeystoreDir)

	if keygenDirectoryFile != "" {
		if err := publishParty(keygenDirectoryFile, keygenPartyName, ks); err != nil {
			return err
		}
		fmt.Printf("Published public keys to %s\n", keygenDirectoryFile)
	}

	return nil
}
