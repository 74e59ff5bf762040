package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chainofproduct/cop/pipeline"
)

var (
	unprotectKeystoreDir   string
	unprotectDirectoryFile string
	unprotectGroupsFile    string
	unprotectEnvelopeFile  string
	unprotectParty         string
	unprotectOutputFile    string
)

var unprotectCmd = &cobra.Command{
	Use:   "unprotect",
	Short: "Recover the plaintext document for a recipient",
	Long: `unprotect runs Check first, then recovers the content key
for the named party from either the envelope's direct recipients or a
direct-kind addendum naming them, and decrypts the content. Bare group
membership never grants content access on its own.`,
	Example: `  cop unprotect --keystore ./keys --directory ./directory.yaml \
    --envelope envelope.cop --party "Lays Chips" --out doc.json`,
	RunE: runUnprotect,
}

func init() {
	rootCmd.AddCommand(unprotectCmd)

	unprotectCmd.Flags().StringVar(&unprotectKeystoreDir, "keystore", "", "keystore directory (required)")
	unprotectCmd.Flags().StringVar(&unprotectDirectoryFile, "directory", "", "directory seed file (required)")
	unprotectCmd.Flags().StringVar(&unprotectGroupsFile, "groups", "", "groups file")
	unprotectCmd.Flags().StringVar(&unprotectEnvelopeFile, "envelope", "", "envelope file (required)")
	unprotectCmd.Flags().StringVar(&unprotectParty, "party", "", "recipient party name (required)")
	unprotectCmd.Flags().StringVar(&unprotectOutputFile, "out", "", "output plaintext file (default: stdout)")
	unprotectCmd.MarkFlagRequired("keystore")
	unprotectCmd.MarkFlagRequired("directory")
	unprotectCmd.MarkFlagRequired("envelope")
	unprotectCmd.MarkFlagRequired("party")
}

func runUnprotect(cmd *cobra.Command, args []string) error {
	ks, err := newKeyStore(unprotectKeystoreDir)
	if err != nil {
		return err
	}
	dir, err := loadDirectory(unprotectDirectoryFile)
	if err != nil {
		return err
	}
	groups, err := loadGroups(unprotectGroupsFile)
	if err != nil {
		return err
	}
	env, err := readEnvelope(unprotectEnvelopeFile)
	if err != nil {
		return err
	}

	pl := pipeline.New(ks, dir, groups)
	doc, err := pl.Unprotect(env, unprotectParty)
	if err != nil {
		return err
	}

	if unprotectOutputFile == "" {
		fmt.Print(string(doc))
		return nil
	}
	return os.WriteFile(unprotectOutputFile, doc, 0644)
}
