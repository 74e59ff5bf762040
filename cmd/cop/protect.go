package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chainofproduct/cop/pipeline"
)

var (
	protectKeystoreDir   string
	protectDirectoryFile string
	protectGroupsFile    string
	protectSeller        string
	protectBuyer         string
	protectRecipients    string
	protectGroups        string
	protectInputFile     string
	protectOutputFile    string
)

var protectCmd = &cobra.Command{
	Use:   "protect",
	Short: "Seal a transaction document into a protected envelope",
	Long: `protect reads a plaintext transaction document and seals it
under a fresh content key, wrapping that key for the seller, the
buyer (if named), and every direct recipient, and wrapping a group key
derived from it for every member of every named group's current
snapshot.`,
	Example: `  cop protect --keystore ./keys --directory ./directory.yaml \
    --seller "Ching Chong Extractions" --buyer "Lays Chips" \
    --recipients "Auditor Corp" --in doc.json --out envelope.cop`,
	RunE: runProtect,
}

func init() {
	rootCmd.AddCommand(protectCmd)

	protectCmd.Flags().StringVar(&protectKeystoreDir, "keystore", "", "keystore directory (required)")
	protectCmd.Flags().StringVar(&protectDirectoryFile, "directory", "", "directory seed file (required)")
	protectCmd.Flags().StringVar(&protectGroupsFile, "groups", "", "groups file")
	protectCmd.Flags().StringVar(&protectSeller, "seller", "", "seller party name (required)")
	protectCmd.Flags().StringVar(&protectBuyer, "buyer", "", "buyer party name")
	protectCmd.Flags().StringVar(&protectRecipients, "recipients", "", "comma-separated direct recipient names")
	protectCmd.Flags().StringVar(&protectGroups, "groups-in", "", "comma-separated group ids")
	protectCmd.Flags().StringVar(&protectInputFile, "in", "", "plaintext document file (required)")
	protectCmd.Flags().StringVar(&protectOutputFile, "out", "", "output envelope file (required)")
	protectCmd.MarkFlagRequired("keystore")
	protectCmd.MarkFlagRequired("directory")
	protectCmd.MarkFlagRequired("seller")
	protectCmd.MarkFlagRequired("in")
	protectCmd.MarkFlagRequired("out")
}

func runProtect(cmd *cobra.Command, args []string) error {
	ks, err := newKeyStore(protectKeystoreDir)
	if err != nil {
		return err
	}
	dir, err := loadDirectory(protectDirectoryFile)
	if err != nil {
		return err
	}
	groups, err := loadGroups(protectGroupsFile)
	if err != nil {
		return err
	}

	doc, err := os.ReadFile(protectInputFile)
	if err != nil {
		return fmt.Errorf("read input document %s: %w", protectInputFile, err)
	}

	pl := pipeline.New(ks, dir, groups)
	env, err := pl.Protect(doc, protectSeller, protectBuyer, splitCSV(protectRecipients), splitCSV(protectGroups))
	if err != nil {
		return err
	}

	if err := writeEnvelope(protectOutputFile, env); err != nil {
		return err
	}
	fmt.Printf("Protected tx_id=%s -> %s\n", txIDDisplay(env.TxID), protectOutputFile)
	return nil
}
