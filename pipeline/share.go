package pipeline

import (
	"fmt"
	"time"

	copcrypto "github.com/chainofproduct/cop/crypto"
	"github.com/chainofproduct/cop/envelope"
	"github.com/chainofproduct/cop/internal/metrics"
)

// DocumentStore models the application-server collaborator §6
// describes but places outside the core: it stores envelopes by
// TxID, appends addenda, and retrieves the ShareRecords accumulated
// for a TxID. The core never implements an HTTP surface or a
// relational schema for this — only the interface a caller needs to
// drive Share and Audit.
type DocumentStore interface {
	Put(e *envelope.Envelope) error
	Get(txID []byte) (*envelope.Envelope, error)
	AppendAddendum(txID []byte, addendum envelope.Addendum) error
	ShareRecords(txID []byte) ([]envelope.ShareRecord, error)
}

// memoryDocumentStore is an in-memory reference DocumentStore, keyed
// by the hex encoding of TxID.
type memoryDocumentStore struct {
	envelopes map[string]*envelope.Envelope
}

// NewMemoryDocumentStore creates an empty in-memory DocumentStore.
func NewMemoryDocumentStore() *memoryDocumentStore {
	return &memoryDocumentStore{envelopes: make(map[string]*envelope.Envelope)}
}

func txKey(txID []byte) string { return fmt.Sprintf("%x", txID) }

func (s *memoryDocumentStore) Put(e *envelope.Envelope) error {
	s.envelopes[txKey(e.TxID)] = e
	return nil
}

func (s *memoryDocumentStore) Get(txID []byte) (*envelope.Envelope, error) {
	e, ok := s.envelopes[txKey(txID)]
	if !ok {
		return nil, fmt.Errorf("pipeline: %x: %w", txID, ErrUnknownParty)
	}
	return e, nil
}

func (s *memoryDocumentStore) AppendAddendum(txID []byte, addendum envelope.Addendum) error {
	e, ok := s.envelopes[txKey(txID)]
	if !ok {
		return fmt.Errorf("pipeline: %x: %w", txID, ErrUnknownParty)
	}
	e.Addenda = append(e.Addenda, addendum)
	return nil
}

func (s *memoryDocumentStore) ShareRecords(txID []byte) ([]envelope.ShareRecord, error) {
	e, ok := s.envelopes[txKey(txID)]
	if !ok {
		return nil, fmt.Errorf("pipeline: %x: %w", txID, ErrUnknownParty)
	}
	records := make([]envelope.ShareRecord, 0, len(e.Addenda))
	for _, a := range e.Addenda {
		records = append(records, a.ShareRecord)
	}
	return records, nil
}

// ShareResult is what Share produces: the signed ShareRecord and the
// Addenda submitted to the DocumentStore. A direct share always submits
// one addendum; its Wrap is nil when the recipient already had access.
type ShareResult struct {
	ShareRecord envelope.ShareRecord
	Addenda     []envelope.Addendum
}

// Share discloses TxID's content (or, for a group, the group's
// disclosure key) from sharer X to a party or group named
// disclosedTo, per §4.8. kind selects envelope.KindDirect or
// envelope.KindGroup. X must already be able to recover the content
// key — Share calls the same recovery path Unprotect uses to
// establish that X holds it, without decrypting the content itself.
//
// A direct share produces at most one addendum, naming disclosedTo. A
// group share produces one addendum per member of the share-time
// snapshot, each wrapping the same freshly-derived group key and
// carrying a copy of the one ShareRecord signed for this disclosure.
func (p *Pipeline) Share(store DocumentStore, txID []byte, x, disclosedTo, kind string) (result *ShareResult, err error) {
	start := time.Now()
	defer observe("share", start, &err)
	defer func() {
		if err == nil {
			metrics.GetGlobalCollector().RecordShare()
		}
	}()

	e, err := store.Get(txID)
	if err != nil {
		return nil, err
	}

	contentKey, err := p.contentKeyFor(e, x)
	if err != nil {
		return nil, err
	}
	defer copcrypto.ZeroBytes(contentKey)

	record := envelope.ShareRecord{
		TxID:        txID,
		Sharer:      x,
		DisclosedTo: disclosedTo,
		Kind:        kind,
		Timestamp:   time.Now().UTC(),
	}

	signingInput, err := envelope.ShareRecordSigningInput(record)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	digest := copcrypto.SHA256(signingInput)

	xKeys, err := p.Keys.Load(x)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreFailure, err)
	}
	sig, err := xKeys.Signing.Sign(digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: share signature: %v", ErrKeyStoreFailure, err)
	}
	record.Sig = sig

	var addenda []envelope.Addendum
	switch kind {
	case envelope.KindDirect:
		var w *envelope.WrappedKey
		if !hasDirectAccess(e, disclosedTo) {
			_, encPub, derr := p.Directory.Publics(disclosedTo)
			if derr != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrUnknownParty, disclosedTo, derr)
			}
			w, err = wrap(contentKey, disclosedTo, encPub)
			if err != nil {
				return nil, err
			}
		}
		addenda = []envelope.Addendum{{ShareRecord: record, Wrap: w}}

	case envelope.KindGroup:
		members, gerr := p.Groups.Snapshot(disclosedTo)
		if gerr != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnknownGroup, disclosedTo, gerr)
		}
		groupKey, kerr := copcrypto.HKDF(contentKey, txID, []byte(disclosedTo), copcrypto.KeySize)
		if kerr != nil {
			return nil, fmt.Errorf("%w: group key: %v", ErrKeyStoreFailure, kerr)
		}
		defer copcrypto.ZeroBytes(groupKey)

		addenda = make([]envelope.Addendum, 0, len(members))
		for _, m := range members {
			_, memberEncPub, merr := p.Directory.Publics(m)
			if merr != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrUnknownParty, m, merr)
			}
			w, werr := wrap(groupKey, m, memberEncPub)
			if werr != nil {
				return nil, werr
			}
			addenda = append(addenda, envelope.Addendum{ShareRecord: record, Wrap: w})
		}

	default:
		return nil, fmt.Errorf("%w: unknown share kind %q", ErrMalformed, kind)
	}

	for _, a := range addenda {
		if err := store.AppendAddendum(txID, a); err != nil {
			return nil, err
		}
	}

	return &ShareResult{ShareRecord: record, Addenda: addenda}, nil
}

// hasDirectAccess reports whether name is already a direct recipient
// or already the subject of a direct-kind addendum with a wrap.
func hasDirectAccess(e *envelope.Envelope, name string) bool {
	for _, w := range e.DirectRecipients {
		if w.Name == name {
			return true
		}
	}
	for _, a := range e.Addenda {
		if a.Wrap != nil && a.ShareRecord.Kind == envelope.KindDirect && a.ShareRecord.DisclosedTo == name {
			return true
		}
	}
	return false
}

// contentKeyFor recovers the content key X already holds, the same
// way Unprotect would, without decrypting the content itself — Share
// only needs K_T, not T.
func (p *Pipeline) contentKeyFor(e *envelope.Envelope, x string) ([]byte, error) {
	xKeys, err := p.Keys.Load(x)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreFailure, err)
	}
	return p.recoverContentKey(e, x, xKeys.Encrypt)
}

// AuditEntry pairs a ShareRecord with whether its signature verified.
type AuditEntry struct {
	Record      envelope.ShareRecord
	SigValid    bool
	SharerKnown bool
}

// Audit retrieves every ShareRecord for TxID and verifies each one's
// signature under its sharer's signing public key, per §4.8's
// seller-side audit and §8 property 6.
func (p *Pipeline) Audit(store DocumentStore, txID []byte) (entries []AuditEntry, err error) {
	start := time.Now()
	defer observe("audit", start, &err)
	defer func() {
		if err == nil {
			metrics.GetGlobalCollector().RecordAudit()
		}
	}()

	records, err := store.ShareRecords(txID)
	if err != nil {
		return nil, err
	}

	entries = make([]AuditEntry, 0, len(records))
	for _, r := range records {
		entry := AuditEntry{Record: r}

		signingPub, derr := p.partySigningPub(r.Sharer)
		if derr != nil {
			entries = append(entries, entry)
			continue
		}
		entry.SharerKnown = true

		signingInput, serr := envelope.ShareRecordSigningInput(r)
		if serr != nil {
			entries = append(entries, entry)
			continue
		}
		digest := copcrypto.SHA256(signingInput)
		entry.SigValid = signingPub.Verify(digest[:], r.Sig) == nil

		entries = append(entries, entry)
	}

	return entries, nil
}
