package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chainofproduct/cop/pipeline"
)

var (
	checkKeystoreDir   string
	checkDirectoryFile string
	checkGroupsFile    string
	checkEnvelopeFile  string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate an envelope's structure and signatures without decrypting",
	Long: `check reports whether an envelope is structurally well-formed
and whether its seller and (if present) buyer signatures verify. It
never touches content and has no side effects.`,
	Example: `  cop check --directory ./directory.yaml --envelope envelope.cop`,
	RunE:    runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVar(&checkKeystoreDir, "keystore", "", "keystore directory")
	checkCmd.Flags().StringVar(&checkDirectoryFile, "directory", "", "directory seed file (required)")
	checkCmd.Flags().StringVar(&checkGroupsFile, "groups", "", "groups file")
	checkCmd.Flags().StringVar(&checkEnvelopeFile, "envelope", "", "envelope file (required)")
	checkCmd.MarkFlagRequired("directory")
	checkCmd.MarkFlagRequired("envelope")
}

func runCheck(cmd *cobra.Command, args []string) error {
	keyStore, err := optionalKeyStore(checkKeystoreDir)
	if err != nil {
		return err
	}

	dir, err := loadDirectory(checkDirectoryFile)
	if err != nil {
		return err
	}
	groups, err := loadGroups(checkGroupsFile)
	if err != nil {
		return err
	}

	env, err := readEnvelope(checkEnvelopeFile)
	if err != nil {
		return err
	}

	pl := pipeline.New(keyStore, dir, groups)
	report, err := pl.Check(env)
	if err != nil {
		return err
	}

	fmt.Printf("well_formed:      %v\n", report.WellFormed)
	fmt.Printf("seller_sig_valid: %v\n", report.SellerSigValid)
	if report.BuyerSigValid != nil {
		fmt.Printf("buyer_sig_valid:  %v\n", *report.BuyerSigValid)
	} else {
		fmt.Printf("buyer_sig_valid:  n/a (no buyer signature)\n")
	}
	for _, f := range report.Failures {
		fmt.Printf("failure: %s\n", f)
	}

	if !report.WellFormed || !report.SellerSigValid {
		return fmt.Errorf("%w", pipeline.ErrSignatureInvalid)
	}
	return nil
}
