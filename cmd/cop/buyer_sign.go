package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chainofproduct/cop/pipeline"
)

var (
	buyerSignKeystoreDir   string
	buyerSignDirectoryFile string
	buyerSignGroupsFile    string
	buyerSignEnvelopeFile  string
	buyerSignParty         string
	buyerSignOutputFile    string
)

var buyerSignCmd = &cobra.Command{
	Use:   "buyer-sign",
	Short: "Countersign an envelope as its named buyer",
	Long: `buyer-sign attaches the buyer's signature over the envelope's
unchanged signing input. The envelope must already name buyerParty as
its buyer.`,
	Example: `  cop buyer-sign --keystore ./keys --envelope envelope.cop \
    --party "Lays Chips" --out envelope.signed.cop`,
	RunE: runBuyerSign,
}

func init() {
	rootCmd.AddCommand(buyerSignCmd)

	buyerSignCmd.Flags().StringVar(&buyerSignKeystoreDir, "keystore", "", "keystore directory (required)")
	buyerSignCmd.Flags().StringVar(&buyerSignDirectoryFile, "directory", "", "directory seed file (required)")
	buyerSignCmd.Flags().StringVar(&buyerSignGroupsFile, "groups", "", "groups file")
	buyerSignCmd.Flags().StringVar(&buyerSignEnvelopeFile, "envelope", "", "envelope file (required)")
	buyerSignCmd.Flags().StringVar(&buyerSignParty, "party", "", "buyer party name (required)")
	buyerSignCmd.Flags().StringVar(&buyerSignOutputFile, "out", "", "output envelope file (required)")
	buyerSignCmd.MarkFlagRequired("keystore")
	buyerSignCmd.MarkFlagRequired("directory")
	buyerSignCmd.MarkFlagRequired("envelope")
	buyerSignCmd.MarkFlagRequired("party")
	buyerSignCmd.MarkFlagRequired("out")
}

func runBuyerSign(cmd *cobra.Command, args []string) error {
	ks, err := newKeyStore(buyerSignKeystoreDir)
	if err != nil {
		return err
	}
	dir, err := loadDirectory(buyerSignDirectoryFile)
	if err != nil {
		return err
	}
	groups, err := loadGroups(buyerSignGroupsFile)
	if err != nil {
		return err
	}
	env, err := readEnvelope(buyerSignEnvelopeFile)
	if err != nil {
		return err
	}

	pl := pipeline.New(ks, dir, groups)
	signed, err := pl.BuyerSign(env, buyerSignParty)
	if err != nil {
		return err
	}

	if err := writeEnvelope(buyerSignOutputFile, signed); err != nil {
		return err
	}
	fmt.Printf("Buyer-signed tx_id=%s -> %s\n", txIDDisplay(signed.TxID), buyerSignOutputFile)
	return nil
}
