package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chainofproduct/cop/pipeline"
)

var (
	auditKeystoreDir   string
	auditDirectoryFile string
	auditGroupsFile    string
	auditEnvelopeFile  string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List and verify every disclosure made against an envelope",
	Long: `audit retrieves every ShareRecord recorded for an envelope's
transaction and verifies each one's signature under its sharer's
published signing key, giving the seller full visibility into every
addendum regardless of who added it.`,
	Example: `  cop audit --directory ./directory.yaml --envelope envelope.cop`,
	RunE:    runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditKeystoreDir, "keystore", "", "keystore directory")
	auditCmd.Flags().StringVar(&auditDirectoryFile, "directory", "", "directory seed file (required)")
	auditCmd.Flags().StringVar(&auditGroupsFile, "groups", "", "groups file")
	auditCmd.Flags().StringVar(&auditEnvelopeFile, "envelope", "", "envelope file (required)")
	auditCmd.MarkFlagRequired("directory")
	auditCmd.MarkFlagRequired("envelope")
}

func runAudit(cmd *cobra.Command, args []string) error {
	keyStore, err := optionalKeyStore(auditKeystoreDir)
	if err != nil {
		return err
	}
	dir, err := loadDirectory(auditDirectoryFile)
	if err != nil {
		return err
	}
	groups, err := loadGroups(auditGroupsFile)
	if err != nil {
		return err
	}

	store := newFileDocumentStore(auditEnvelopeFile)
	env, err := store.Get(nil)
	if err != nil {
		return err
	}

	pl := pipeline.New(keyStore, dir, groups)
	entries, err := pl.Audit(store, env.TxID)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("no disclosures recorded")
		return nil
	}
	for _, e := range entries {
		fmt.Printf("sharer=%q disclosed_to=%q kind=%s sharer_known=%v sig_valid=%v at=%s\n",
			e.Record.Sharer, e.Record.DisclosedTo, e.Record.Kind, e.SharerKnown, e.SigValid, e.Record.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}
