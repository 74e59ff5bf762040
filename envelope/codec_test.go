package envelope

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEnvelope() *Envelope {
	return &Envelope{
		Version:           Version,
		TxID:              []byte("0123456789abcdef"),
		Seller:            "Ching Chong Extractions",
		Buyer:             "Lays Chips",
		ContentNonce:      []byte("123456789012"),
		ContentCiphertext: []byte("ciphertext-bytes"),
		ContentHash:       []byte("0123456789abcdef0123456789abcdef"),
		DirectRecipients: []WrappedKey{
			{Name: "Ching Chong Extractions", EphemeralPub: []byte("eph-pub-bytes-32-bytes-long!!!!!"), Nonce: []byte("nonce-12byte"), Ciphertext: []byte("wrapped-key-ciphertext-48b------")},
			{Name: "Lays Chips", EphemeralPub: []byte("eph-pub-bytes-32-bytes-long!!!!!"), Nonce: []byte("nonce-12byte"), Ciphertext: []byte("wrapped-key-ciphertext-48b------")},
		},
		GroupRecipients: []GroupWrapSet{
			{
				GroupID: "tech_partners",
				Members: []string{"Auditor Corp"},
				Wraps: []WrappedKey{
					{Name: "Auditor Corp", EphemeralPub: []byte("eph-pub-bytes-32-bytes-long!!!!!"), Nonce: []byte("nonce-12byte"), Ciphertext: []byte("wrapped-key-ciphertext-48b------")},
				},
			},
		},
		SellerSig: []byte("seller-signature-64-bytes-------seller-signature-64-bytes-----"),
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	env := sampleEnvelope()

	raw, err := Encode(env)
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, env.Seller, decoded.Seller)
	assert.Equal(t, env.Buyer, decoded.Buyer)
	assert.Equal(t, env.TxID, decoded.TxID)
	assert.Equal(t, env.DirectRecipients, decoded.DirectRecipients)
	assert.Equal(t, env.GroupRecipients, decoded.GroupRecipients)

	reRaw, err := Encode(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(reRaw))
}

func TestDecodeRejectsNonCanonicalInput(t *testing.T) {
	env := sampleEnvelope()
	raw, err := Encode(env)
	require.NoError(t, err)

	// Append an unknown trailing field the codec doesn't understand —
	// it round-trips to different bytes (the field vanishes on re-encode).
	tampered := raw[:len(raw)-1]
	tampered = append(tampered, []byte(`,"unknown_field":"x"}`)...)

	_, err = Decode(tampered)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	env := sampleEnvelope()
	env.Version = "cop/99"
	raw, err := Encode(env)
	require.NoError(t, err)

	_, err = Decode(raw)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestSigningInputExcludesSignaturesAndAddenda(t *testing.T) {
	env := sampleEnvelope()

	without, err := SigningInput(env)
	require.NoError(t, err)

	env.BuyerSig = []byte("buyer-signature-64-bytes--------buyer-signature-64-bytes------")
	env.Addenda = []Addendum{{ShareRecord: ShareRecord{
		TxID: env.TxID, Sharer: "Lays Chips", DisclosedTo: "Auditor Corp",
		Kind: KindGroup, Timestamp: time.Now(), Sig: []byte("sig"),
	}}}

	withExtras, err := SigningInput(env)
	require.NoError(t, err)

	assert.Equal(t, without, withExtras, "signing input must be stable across buyer_sig/addenda changes")
}

func TestSigningInputChangesWithContent(t *testing.T) {
	env := sampleEnvelope()
	a, err := SigningInput(env)
	require.NoError(t, err)

	env.Seller = "Someone Else"
	b, err := SigningInput(env)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestShareRecordRoundTrip(t *testing.T) {
	sr := ShareRecord{
		TxID:        []byte("0123456789abcdef"),
		Sharer:      "Lays Chips",
		DisclosedTo: "Auditor Corp",
		Kind:        KindDirect,
		Timestamp:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Sig:         []byte("share-record-signature-64-bytes-share-record-signature-64-byte"),
	}

	raw, err := EncodeShareRecord(sr)
	require.NoError(t, err)

	decoded, err := DecodeShareRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, sr.Sharer, decoded.Sharer)
	assert.Equal(t, sr.DisclosedTo, decoded.DisclosedTo)
	assert.Equal(t, sr.Kind, decoded.Kind)
	assert.True(t, sr.Timestamp.Equal(decoded.Timestamp))

	reRaw, err := EncodeShareRecord(*decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(reRaw))
}

func TestShareRecordSigningInputExcludesSig(t *testing.T) {
	sr := ShareRecord{
		TxID: []byte("0123456789abcdef"), Sharer: "X", DisclosedTo: "Y",
		Kind: KindDirect, Timestamp: time.Now(),
	}
	without, err := ShareRecordSigningInput(sr)
	require.NoError(t, err)

	sr.Sig = []byte("some-signature")
	withSig, err := ShareRecordSigningInput(sr)
	require.NoError(t, err)

	assert.Equal(t, without, withSig)
}
