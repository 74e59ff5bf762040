package envelope

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"
)

// Canonicalization relies on encoding/json's documented behavior of
// sorting map[string]interface{} keys lexicographically on Marshal —
// the same mechanism used throughout the ecosystem to get deterministic
// JSON out of unordered Go data without a hand-rolled key-sorted writer.
// Binary fields are always base64url without padding before insertion.

func b64(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func unb64(s string) ([]byte, error) { return base64.RawURLEncoding.DecodeString(s) }

func wrappedKeyMap(w WrappedKey) map[string]interface{} {
	return map[string]interface{}{
		"name":    w.Name,
		"eph_pub": b64(w.EphemeralPub),
		"nonce":   b64(w.Nonce),
		"ct":      b64(w.Ciphertext),
	}
}

func groupWrapSetMap(g GroupWrapSet) map[string]interface{} {
	wraps := make([]interface{}, len(g.Wraps))
	for i, w := range g.Wraps {
		wraps[i] = wrappedKeyMap(w)
	}
	members := make([]interface{}, len(g.Members))
	for i, m := range g.Members {
		members[i] = m
	}
	return map[string]interface{}{
		"group_id": g.GroupID,
		"members":  members,
		"wraps":    wraps,
	}
}

// signingInputMap builds the exact nine-field object spec §4.4 step 7
// names as the seller/buyer signing input — every envelope field
// except the signatures and addenda.
func signingInputMap(e *Envelope) map[string]interface{} {
	direct := make([]interface{}, len(e.DirectRecipients))
	for i, w := range e.DirectRecipients {
		direct[i] = wrappedKeyMap(w)
	}
	groups := make([]interface{}, len(e.GroupRecipients))
	for i, g := range e.GroupRecipients {
		groups[i] = groupWrapSetMap(g)
	}

	return map[string]interface{}{
		"version":           e.Version,
		"tx_id":             b64(e.TxID),
		"seller":            e.Seller,
		"buyer":             e.Buyer,
		"content_nonce":     b64(e.ContentNonce),
		"content_ct":        b64(e.ContentCiphertext),
		"content_hash":      b64(e.ContentHash),
		"direct_recipients": direct,
		"group_recipients":  groups,
	}
}

// SigningInput returns the canonical bytes seller_signature and
// buyer_signature are computed over (spec §4.4 step 7, §4.7).
func SigningInput(e *Envelope) ([]byte, error) {
	return json.Marshal(signingInputMap(e))
}

func addendumMap(a Addendum) map[string]interface{} {
	m := map[string]interface{}{"share_record": shareRecordFullMap(a.ShareRecord)}
	if a.Wrap != nil {
		m["wrap"] = wrappedKeyMap(*a.Wrap)
	}
	return m
}

// envelopeMap builds the complete on-the-wire object, including
// signatures and addenda.
func envelopeMap(e *Envelope) map[string]interface{} {
	m := signingInputMap(e)
	m["seller_sig"] = b64(e.SellerSig)
	if len(e.BuyerSig) > 0 {
		m["buyer_sig"] = b64(e.BuyerSig)
	}
	if len(e.Addenda) > 0 {
		addenda := make([]interface{}, len(e.Addenda))
		for i, a := range e.Addenda {
			addenda[i] = addendumMap(a)
		}
		m["addenda"] = addenda
	}
	return m
}

// Encode serializes e to its canonical on-the-wire bytes.
func Encode(e *Envelope) ([]byte, error) {
	return json.Marshal(envelopeMap(e))
}

type wireWrappedKey struct {
	Name   string `json:"name"`
	EphPub string `json:"eph_pub"`
	Nonce  string `json:"nonce"`
	CT     string `json:"ct"`
}

func (w wireWrappedKey) decode() (WrappedKey, error) {
	ephPub, err := unb64(w.EphPub)
	if err != nil {
		return WrappedKey{}, fmt.Errorf("envelope: eph_pub: %w", ErrMalformed)
	}
	nonce, err := unb64(w.Nonce)
	if err != nil {
		return WrappedKey{}, fmt.Errorf("envelope: nonce: %w", ErrMalformed)
	}
	ct, err := unb64(w.CT)
	if err != nil {
		return WrappedKey{}, fmt.Errorf("envelope: ct: %w", ErrMalformed)
	}
	return WrappedKey{Name: w.Name, EphemeralPub: ephPub, Nonce: nonce, Ciphertext: ct}, nil
}

type wireGroupWrapSet struct {
	GroupID string           `json:"group_id"`
	Members []string         `json:"members"`
	Wraps   []wireWrappedKey `json:"wraps"`
}

func (g wireGroupWrapSet) decode() (GroupWrapSet, error) {
	wraps := make([]WrappedKey, len(g.Wraps))
	for i, w := range g.Wraps {
		wk, err := w.decode()
		if err != nil {
			return GroupWrapSet{}, err
		}
		wraps[i] = wk
	}
	return GroupWrapSet{GroupID: g.GroupID, Members: g.Members, Wraps: wraps}, nil
}

type wireShareRecord struct {
	TxID        string `json:"tx_id"`
	Sharer      string `json:"sharer"`
	DisclosedTo string `json:"disclosed_to"`
	Kind        string `json:"kind"`
	Timestamp   string `json:"timestamp"`
	Sig         string `json:"sig,omitempty"`
}

func (s wireShareRecord) decode() (ShareRecord, error) {
	txID, err := unb64(s.TxID)
	if err != nil {
		return ShareRecord{}, fmt.Errorf("envelope: share_record.tx_id: %w", ErrMalformed)
	}
	ts, err := time.Parse(time.RFC3339, s.Timestamp)
	if err != nil {
		return ShareRecord{}, fmt.Errorf("envelope: share_record.timestamp: %w", ErrMalformed)
	}
	var sig []byte
	if s.Sig != "" {
		sig, err = unb64(s.Sig)
		if err != nil {
			return ShareRecord{}, fmt.Errorf("envelope: share_record.sig: %w", ErrMalformed)
		}
	}
	return ShareRecord{
		TxID:        txID,
		Sharer:      s.Sharer,
		DisclosedTo: s.DisclosedTo,
		Kind:        s.Kind,
		Timestamp:   ts,
		Sig:         sig,
	}, nil
}

type wireAddendum struct {
	ShareRecord wireShareRecord `json:"share_record"`
	Wrap        *wireWrappedKey `json:"wrap,omitempty"`
}

type wireEnvelope struct {
	Version          string             `json:"version"`
	TxID             string             `json:"tx_id"`
	Seller           string             `json:"seller"`
	Buyer            string             `json:"buyer"`
	ContentNonce     string             `json:"content_nonce"`
	ContentCT        string             `json:"content_ct"`
	ContentHash      string             `json:"content_hash"`
	DirectRecipients []wireWrappedKey   `json:"direct_recipients"`
	GroupRecipients  []wireGroupWrapSet `json:"group_recipients"`
	SellerSig        string             `json:"seller_sig"`
	BuyerSig         string             `json:"buyer_sig,omitempty"`
	Addenda          []wireAddendum     `json:"addenda,omitempty"`
}

// Decode parses raw bytes into an Envelope, rejecting any input that
// does not round-trip to identical bytes under Encode (spec §4.3:
// "Parsers must reject any input that does not round-trip to identical
// bytes").
func Decode(raw []byte) (*Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("envelope: %w: %v", ErrMalformed, err)
	}
	if w.Version != Version {
		return nil, fmt.Errorf("envelope: unsupported version %q: %w", w.Version, ErrMalformed)
	}

	txID, err := unb64(w.TxID)
	if err != nil {
		return nil, fmt.Errorf("envelope: tx_id: %w", ErrMalformed)
	}
	contentNonce, err := unb64(w.ContentNonce)
	if err != nil {
		return nil, fmt.Errorf("envelope: content_nonce: %w", ErrMalformed)
	}
	contentCT, err := unb64(w.ContentCT)
	if err != nil {
		return nil, fmt.Errorf("envelope: content_ct: %w", ErrMalformed)
	}
	contentHash, err := unb64(w.ContentHash)
	if err != nil {
		return nil, fmt.Errorf("envelope: content_hash: %w", ErrMalformed)
	}
	sellerSig, err := unb64(w.SellerSig)
	if err != nil {
		return nil, fmt.Errorf("envelope: seller_sig: %w", ErrMalformed)
	}
	var buyerSig []byte
	if w.BuyerSig != "" {
		buyerSig, err = unb64(w.BuyerSig)
		if err != nil {
			return nil, fmt.Errorf("envelope: buyer_sig: %w", ErrMalformed)
		}
	}

	direct := make([]WrappedKey, len(w.DirectRecipients))
	for i, wk := range w.DirectRecipients {
		d, err := wk.decode()
		if err != nil {
			return nil, err
		}
		direct[i] = d
	}

	groups := make([]GroupWrapSet, len(w.GroupRecipients))
	for i, g := range w.GroupRecipients {
		d, err := g.decode()
		if err != nil {
			return nil, err
		}
		groups[i] = d
	}

	var addenda []Addendum
	for _, a := range w.Addenda {
		sr, err := a.ShareRecord.decode()
		if err != nil {
			return nil, err
		}
		add := Addendum{ShareRecord: sr}
		if a.Wrap != nil {
			wk, err := a.Wrap.decode()
			if err != nil {
				return nil, err
			}
			add.Wrap = &wk
		}
		addenda = append(addenda, add)
	}

	env := &Envelope{
		Version:           w.Version,
		TxID:              txID,
		Seller:            w.Seller,
		Buyer:             w.Buyer,
		ContentNonce:      contentNonce,
		ContentCiphertext: contentCT,
		ContentHash:       contentHash,
		DirectRecipients:  direct,
		GroupRecipients:   groups,
		SellerSig:         sellerSig,
		BuyerSig:          buyerSig,
		Addenda:           addenda,
	}

	reEncoded, err := Encode(env)
	if err != nil {
		return nil, fmt.Errorf("envelope: re-encode: %w", err)
	}
	var canonicalRaw, canonicalReEncoded bytes.Buffer
	if err := json.Compact(&canonicalRaw, raw); err != nil {
		return nil, fmt.Errorf("envelope: %w: %v", ErrMalformed, err)
	}
	if err := json.Compact(&canonicalReEncoded, reEncoded); err != nil {
		return nil, fmt.Errorf("envelope: re-encode: %w", err)
	}
	if !bytes.Equal(canonicalRaw.Bytes(), canonicalReEncoded.Bytes()) {
		return nil, fmt.Errorf("envelope: non-canonical input: %w", ErrMalformed)
	}

	return env, nil
}

// shareRecordSigningMap builds the share_record-without-signature object
// that ShareRecordSigningInput hashes and signs (spec §3, §4.8).
func shareRecordSigningMap(s ShareRecord) map[string]interface{} {
	return map[string]interface{}{
		"tx_id":        b64(s.TxID),
		"sharer":       s.Sharer,
		"disclosed_to": s.DisclosedTo,
		"kind":         s.Kind,
		"timestamp":    s.Timestamp.UTC().Format(time.RFC3339),
	}
}

func shareRecordFullMap(s ShareRecord) map[string]interface{} {
	m := shareRecordSigningMap(s)
	m["sig"] = b64(s.Sig)
	return m
}

// ShareRecordSigningInput returns the canonical bytes sharer_signature
// covers: the canonical serialization of every ShareRecord field except
// Sig (the caller still SHA-256-hashes this before signing, per §4.8).
func ShareRecordSigningInput(s ShareRecord) ([]byte, error) {
	return json.Marshal(shareRecordSigningMap(s))
}

// EncodeShareRecord serializes a fully-signed ShareRecord to its
// canonical on-the-wire bytes.
func EncodeShareRecord(s ShareRecord) ([]byte, error) {
	return json.Marshal(shareRecordFullMap(s))
}

// DecodeShareRecord parses raw bytes into a ShareRecord, rejecting
// input that does not round-trip to identical bytes under
// EncodeShareRecord.
func DecodeShareRecord(raw []byte) (*ShareRecord, error) {
	var w wireShareRecord
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("envelope: %w: %v", ErrMalformed, err)
	}
	sr, err := w.decode()
	if err != nil {
		return nil, err
	}

	reEncoded, err := EncodeShareRecord(sr)
	if err != nil {
		return nil, fmt.Errorf("envelope: re-encode: %w", err)
	}
	var canonicalRaw, canonicalReEncoded bytes.Buffer
	if err := json.Compact(&canonicalRaw, raw); err != nil {
		return nil, fmt.Errorf("envelope: %w: %v", ErrMalformed, err)
	}
	if err := json.Compact(&canonicalReEncoded, reEncoded); err != nil {
		return nil, fmt.Errorf("envelope: re-encode: %w", err)
	}
	if !bytes.Equal(canonicalRaw.Bytes(), canonicalReEncoded.Bytes()) {
		return nil, fmt.Errorf("envelope: non-canonical input: %w", ErrMalformed)
	}

	return &sr, nil
}
