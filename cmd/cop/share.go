package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chainofproduct/cop/envelope"
	"github.com/chainofproduct/cop/pipeline"
)

var (
	shareKeystoreDir   string
	shareDirectoryFile string
	shareGroupsFile    string
	shareEnvelopeFile  string
	shareSharer        string
	shareDisclosedTo   string
	shareKind          string
)

var shareCmd = &cobra.Command{
	Use:   "share",
	Short: "Disclose content to a new party or group",
	Long: `share has an existing holder of the content key disclose it
(or, for a group, the group's disclosure key) to a party or group not
already covered by the envelope. It records a signed ShareRecord as an
addendum in the envelope file in place.`,
	Example: `  cop share --keystore ./keys --directory ./directory.yaml --groups ./groups.yaml \
    --envelope envelope.cop --sharer "Lays Chips" --to "Auditor Corp" --kind direct`,
	RunE: runShare,
}

func init() {
	rootCmd.AddCommand(shareCmd)

	shareCmd.Flags().StringVar(&shareKeystoreDir, "keystore", "", "keystore directory (required)")
	shareCmd.Flags().StringVar(&shareDirectoryFile, "directory", "", "directory seed file (required)")
	shareCmd.Flags().StringVar(&shareGroupsFile, "groups", "", "groups file")
	shareCmd.Flags().StringVar(&shareEnvelopeFile, "envelope", "", "envelope file (required)")
	shareCmd.Flags().StringVar(&shareSharer, "sharer", "", "party doing the sharing (required)")
	shareCmd.Flags().StringVar(&shareDisclosedTo, "to", "", "party or group name to disclose to (required)")
	shareCmd.Flags().StringVar(&shareKind, "kind", envelope.KindDirect, "disclosure kind: direct or group")
	shareCmd.MarkFlagRequired("keystore")
	shareCmd.MarkFlagRequired("directory")
	shareCmd.MarkFlagRequired("envelope")
	shareCmd.MarkFlagRequired("sharer")
	shareCmd.MarkFlagRequired("to")
}

func runShare(cmd *cobra.Command, args []string) error {
	ks, err := newKeyStore(shareKeystoreDir)
	if err != nil {
		return err
	}
	dir, err := loadDirectory(shareDirectoryFile)
	if err != nil {
		return err
	}
	groups, err := loadGroups(shareGroupsFile)
	if err != nil {
		return err
	}

	store := newFileDocumentStore(shareEnvelopeFile)
	env, err := store.Get(nil)
	if err != nil {
		return err
	}

	pl := pipeline.New(ks, dir, groups)
	result, err := pl.Share(store, env.TxID, shareSharer, shareDisclosedTo, shareKind)
	if err != nil {
		return err
	}

	fmt.Printf("Shared tx_id=%s sharer=%q to=%q kind=%s addenda=%d\n",
		txIDDisplay(env.TxID), shareSharer, shareDisclosedTo, shareKind, len(result.Addenda))
	return nil
}
