// Package pipeline implements the core cryptographic operations —
// Protect, Check, Unprotect, BuyerSign, Share, Audit — that turn a
// transaction document into a protected Envelope and back, per the
// hybrid-encryption, per-recipient-wrap, dynamic-group-disclosure
// design: content is sealed once under a random content key, and that
// content key (or, for groups, a group key derived from it) is
// separately wrapped for every direct recipient and group.
package pipeline

import (
	"bytes"
	"fmt"
	"time"

	copcrypto "github.com/chainofproduct/cop/crypto"
	"github.com/chainofproduct/cop/directory"
	"github.com/chainofproduct/cop/envelope"
	"github.com/chainofproduct/cop/groupsvc"
	"github.com/chainofproduct/cop/internal/logger"
	"github.com/chainofproduct/cop/internal/metrics"
	"github.com/chainofproduct/cop/keystore"
)

// Pipeline bundles the collaborators Protect, Check, Unprotect,
// BuyerSign, Share and Audit need: a KeyStore for local identities, a
// PublicKeyDirectory for counterparty public keys, and a GroupResolver
// for group membership snapshots.
type Pipeline struct {
	Keys      *keystore.KeyStore
	Directory directory.PublicKeyDirectory
	Groups    groupsvc.GroupResolver
	Log       logger.Logger
}

// New builds a Pipeline over the given collaborators.
func New(keys *keystore.KeyStore, dir directory.PublicKeyDirectory, groups groupsvc.GroupResolver) *Pipeline {
	return &Pipeline{Keys: keys, Directory: dir, Groups: groups, Log: logger.NewDefaultLogger()}
}

func observe(operation string, start time.Time, err *error) {
	outcome := "ok"
	if *err != nil {
		outcome = "error"
	}
	metrics.PipelineOperations.WithLabelValues(operation, outcome).Inc()
	metrics.PipelineOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Protect seals T for seller S and (optionally) buyer B, wrapping the
// content key for S, B and every name in recipients, and wrapping a
// group key derived from it for every member of every group in groups,
// per §4.4.
func (p *Pipeline) Protect(t []byte, seller, buyer string, recipients, groups []string) (e *envelope.Envelope, err error) {
	start := time.Now()
	defer observe("protect", start, &err)
	defer func() {
		if err != nil {
			p.Log.Warn("protect failed", logger.String("seller", seller), logger.Error(err))
		} else {
			p.Log.Info("protect succeeded", logger.String("seller", seller), logger.String("tx_id", fmt.Sprintf("%x", e.TxID)))
		}
	}()

	txID, err := copcrypto.RandomBytes(16)
	if err != nil {
		return nil, fmt.Errorf("%w: tx_id: %v", ErrRandomnessFailure, err)
	}
	contentKey, err := copcrypto.RandomBytes(copcrypto.KeySize)
	if err != nil {
		return nil, fmt.Errorf("%w: content key: %v", ErrRandomnessFailure, err)
	}
	defer copcrypto.ZeroBytes(contentKey)
	contentNonce, err := copcrypto.RandomBytes(copcrypto.NonceSize)
	if err != nil {
		return nil, fmt.Errorf("%w: content nonce: %v", ErrRandomnessFailure, err)
	}

	aad := contentAAD(txID, seller, buyer)
	contentCiphertext, err := copcrypto.SealAEAD(contentKey, contentNonce, t, aad)
	if err != nil {
		return nil, fmt.Errorf("%w: seal content: %v", ErrKeyStoreFailure, err)
	}
	hash := copcrypto.SHA256(t)

	direct, err := p.wrapDirectRecipients(contentKey, seller, buyer, recipients)
	if err != nil {
		return nil, err
	}

	groupSets, err := p.wrapGroups(contentKey, txID, groups)
	if err != nil {
		return nil, err
	}

	built := &envelope.Envelope{
		Version:           envelope.Version,
		TxID:              txID,
		Seller:            seller,
		Buyer:             buyer,
		ContentNonce:      contentNonce,
		ContentCiphertext: contentCiphertext,
		ContentHash:       hash[:],
		DirectRecipients:  direct,
		GroupRecipients:   groupSets,
	}

	signingInput, err := envelope.SigningInput(built)
	if err != nil {
		return nil, fmt.Errorf("%w: signing input: %v", ErrMalformed, err)
	}

	sellerKeys, err := p.Keys.Load(seller)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreFailure, err)
	}
	sig, err := sellerKeys.Signing.Sign(signingInput)
	if err != nil {
		return nil, fmt.Errorf("%w: seller signature: %v", ErrKeyStoreFailure, err)
	}
	built.SellerSig = sig

	return built, nil
}

// contentAAD binds the content ciphertext to its transaction and
// parties: TxID || seller || buyer.
func contentAAD(txID []byte, seller, buyer string) []byte {
	aad := make([]byte, 0, len(txID)+len(seller)+len(buyer))
	aad = append(aad, txID...)
	aad = append(aad, []byte(seller)...)
	aad = append(aad, []byte(buyer)...)
	return aad
}

// wrapDirectRecipients builds the direct_recipients set: seller first,
// buyer second (if non-empty), then the given recipients in order,
// deduplicated.
func (p *Pipeline) wrapDirectRecipients(contentKey []byte, seller, buyer string, recipients []string) ([]envelope.WrappedKey, error) {
	seen := make(map[string]bool)
	order := make([]string, 0, len(recipients)+2)

	add := func(name string) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		order = append(order, name)
	}
	add(seller)
	add(buyer)
	for _, r := range recipients {
		add(r)
	}

	wraps := make([]envelope.WrappedKey, 0, len(order))
	for _, name := range order {
		_, encPub, err := p.Directory.Publics(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnknownParty, name, err)
		}
		w, err := wrap(contentKey, name, encPub)
		if err != nil {
			return nil, err
		}
		wraps = append(wraps, *w)
	}
	return wraps, nil
}

// wrapGroups builds one GroupWrapSet per group id: a fresh group key
// derived from the content key, wrapped for every member of the
// group's snapshot at this moment.
func (p *Pipeline) wrapGroups(contentKey, txID []byte, groups []string) ([]envelope.GroupWrapSet, error) {
	sets := make([]envelope.GroupWrapSet, 0, len(groups))
	for _, g := range groups {
		members, err := p.Groups.Snapshot(g)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnknownGroup, g, err)
		}

		groupKey, err := copcrypto.HKDF(contentKey, txID, []byte(g), copcrypto.KeySize)
		if err != nil {
			return nil, fmt.Errorf("%w: group key: %v", ErrKeyStoreFailure, err)
		}
		defer copcrypto.ZeroBytes(groupKey)

		wraps := make([]envelope.WrappedKey, 0, len(members))
		for _, m := range members {
			_, encPub, err := p.Directory.Publics(m)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrUnknownParty, m, err)
			}
			w, err := wrap(groupKey, m, encPub)
			if err != nil {
				return nil, err
			}
			wraps = append(wraps, *w)
		}

		sets = append(sets, envelope.GroupWrapSet{GroupID: g, Members: members, Wraps: wraps})
	}
	return sets, nil
}

// CheckReport is Check's structured result: it never decrypts, only
// reports structural and signature validity.
type CheckReport struct {
	WellFormed     bool
	SellerSigValid bool
	BuyerSigValid  *bool // nil when the envelope carries no buyer signature
	Failures       []ErrorKind
}

// Check validates E's structure and its seller/buyer signatures
// against the directory. Its result is a pure function of
// (E, Directory); its only side effect is recording operation metrics.
func (p *Pipeline) Check(e *envelope.Envelope) (report *CheckReport, err error) {
	start := time.Now()
	defer observe("check", start, &err)

	report = &CheckReport{WellFormed: true}

	if !wellFormed(e) {
		report.WellFormed = false
		report.Failures = append(report.Failures, KindMalformed)
	}

	signingInput, serr := envelope.SigningInput(e)
	if serr != nil {
		report.WellFormed = false
		report.Failures = append(report.Failures, KindMalformed)
		p.recordCheck(report, start)
		return report, nil
	}

	sellerSigningPub, derr := p.partySigningPub(e.Seller)
	if derr != nil {
		report.Failures = append(report.Failures, KindUnknownParty)
	} else {
		report.SellerSigValid = sellerSigningPub.Verify(signingInput, e.SellerSig) == nil
		if !report.SellerSigValid {
			report.Failures = append(report.Failures, KindSignatureInvalid)
		}
	}

	if len(e.BuyerSig) > 0 {
		buyerSigningPub, derr := p.partySigningPub(e.Buyer)
		valid := false
		if derr != nil {
			report.Failures = append(report.Failures, KindUnknownParty)
		} else {
			valid = buyerSigningPub.Verify(signingInput, e.BuyerSig) == nil
			if !valid {
				report.Failures = append(report.Failures, KindSignatureInvalid)
			}
		}
		report.BuyerSigValid = &valid
	}

	p.recordCheck(report, start)
	return report, nil
}

func (p *Pipeline) recordCheck(report *CheckReport, start time.Time) {
	valid := report.WellFormed && report.SellerSigValid && (report.BuyerSigValid == nil || *report.BuyerSigValid)
	metrics.GetGlobalCollector().RecordCheck(valid, time.Since(start))
}

func (p *Pipeline) partySigningPub(name string) (copcrypto.KeyPair, error) {
	if name == "" {
		return nil, ErrUnknownParty
	}
	signingPub, _, err := p.Directory.Publics(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnknownParty, name, err)
	}
	return signingPub, nil
}

// wellFormed applies the structural invariants §4.3/§3 fix the size
// of: TxID is 16 bytes, ContentNonce 12, ContentHash 32, SellerSig 64.
func wellFormed(e *envelope.Envelope) bool {
	return e.Version == envelope.Version &&
		len(e.TxID) == 16 &&
		len(e.ContentNonce) == copcrypto.NonceSize &&
		len(e.ContentHash) == 32 &&
		len(e.SellerSig) == 64
}

// BuyerSign attaches buyerName's signature over E's unchanged
// signing-input. E.Buyer must already equal buyerName.
func (p *Pipeline) BuyerSign(e *envelope.Envelope, buyerName string) (signed *envelope.Envelope, err error) {
	start := time.Now()
	defer observe("buyer_sign", start, &err)
	defer func() {
		if err == nil {
			metrics.GetGlobalCollector().RecordBuyerSign()
		}
	}()

	if e.Buyer != buyerName {
		return nil, fmt.Errorf("%w: envelope buyer %q, got %q", ErrWrongBuyer, e.Buyer, buyerName)
	}

	signingInput, err := envelope.SigningInput(e)
	if err != nil {
		return nil, fmt.Errorf("%w: signing input: %v", ErrMalformed, err)
	}

	buyerKeys, err := p.Keys.Load(buyerName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreFailure, err)
	}
	sig, err := buyerKeys.Signing.Sign(signingInput)
	if err != nil {
		return nil, fmt.Errorf("%w: buyer signature: %v", ErrKeyStoreFailure, err)
	}

	out := *e
	out.BuyerSig = sig
	return &out, nil
}

// Unprotect recovers T for recipient X, per §4.6: direct recipients
// and direct-kind addenda can recover the content key; group wraps
// (GroupWrapSet entries and group-kind addenda) wrap a group key, not
// the content key, and are never a source of content access on their
// own — a group member reads content only once a sharer has produced
// a direct-kind addendum naming them.
func (p *Pipeline) Unprotect(e *envelope.Envelope, x string) (t []byte, err error) {
	start := time.Now()
	defer observe("unprotect", start, &err)
	defer func() {
		if err == nil {
			metrics.GetGlobalCollector().RecordUnprotect(time.Since(start))
		}
	}()

	report, cerr := p.Check(e)
	if cerr != nil {
		return nil, cerr
	}
	if !report.SellerSigValid {
		return nil, ErrSignatureInvalid
	}

	xKeys, err := p.Keys.Load(x)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreFailure, err)
	}

	contentKey, err := p.recoverContentKey(e, x, xKeys.Encrypt)
	if err != nil {
		return nil, err
	}
	defer copcrypto.ZeroBytes(contentKey)

	aad := contentAAD(e.TxID, e.Seller, e.Buyer)
	plaintext, err := copcrypto.OpenAEAD(contentKey, e.ContentNonce, e.ContentCiphertext, aad)
	if err != nil {
		return nil, ErrAuthFailure
	}

	hash := copcrypto.SHA256(plaintext)
	if !bytes.Equal(hash[:], e.ContentHash) {
		return nil, ErrAuthFailure
	}

	return plaintext, nil
}

// recoverContentKey finds K_T for recipient x, trying direct_recipients
// first and then direct-kind addenda. A wrap naming x that fails to
// unwrap is AuthFailure (tamper or wrong key); no wrap naming x at all
// is NotARecipient.
func (p *Pipeline) recoverContentKey(e *envelope.Envelope, x string, encSecret copcrypto.KeyPair) ([]byte, error) {
	for _, w := range e.DirectRecipients {
		if w.Name != x {
			continue
		}
		key, err := unwrap(&w, encSecret)
		if err != nil {
			return nil, ErrAuthFailure
		}
		return key, nil
	}

	for _, a := range e.Addenda {
		if a.Wrap == nil || a.ShareRecord.Kind != envelope.KindDirect || a.ShareRecord.DisclosedTo != x {
			continue
		}
		key, err := unwrap(a.Wrap, encSecret)
		if err != nil {
			return nil, ErrAuthFailure
		}
		return key, nil
	}

	return nil, ErrNotARecipient
}
